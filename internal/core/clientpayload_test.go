package core

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeClientPayload_ContainsUserAgentAndConnectFields(t *testing.T) {
	payload := ClientPayload{
		UserAgent: UserAgent{
			Platform:   WebPlatform,
			AppVersion: AppVersion{Primary: 2, Secondary: 3000, Tertiary: 1022419966},
			MCC:        "000",
			MNC:        "000",
			OSVersion:  "0.1.0",
			Device:     "Desktop",
		},
		WebInfo:       WebInfo{WebSubPlatform: 0},
		ConnectType:   1,
		ConnectReason: 1,
	}

	out := EncodeClientPayload(payload)
	require.NotEmpty(t, out)

	// UserAgent is field 3, wire type 2 (length-delimited): tag byte is
	// (3<<3)|2 = 26.
	assert.Equal(t, byte(26), out[0])
}

func TestEncodeClientPayload_SkipsEmptyStringFields(t *testing.T) {
	withMCC := EncodeClientPayload(ClientPayload{UserAgent: UserAgent{MCC: "000"}})
	withoutMCC := EncodeClientPayload(ClientPayload{UserAgent: UserAgent{}})
	assert.Greater(t, len(withMCC), len(withoutMCC))
}

func TestEncodeClientPayload_DevicePairingOnlyWhenPresent(t *testing.T) {
	base := EncodeClientPayload(ClientPayload{})
	withPairing := EncodeClientPayload(ClientPayload{
		DevicePairing: &DevicePairingRegistrationData{
			ERegID:  42,
			EIdent:  []byte{1, 2, 3},
			ESKeyID: 1,
		},
	})
	assert.Greater(t, len(withPairing), len(base))
}

func TestEncodeClientPayload_PassiveAndPullOmittedWhenFalse(t *testing.T) {
	falsePayload := EncodeClientPayload(ClientPayload{Passive: false, Pull: false})
	truePayload := EncodeClientPayload(ClientPayload{Passive: true, Pull: true})
	assert.Greater(t, len(truePayload), len(falsePayload))
}

func TestBuildHashFor_IsDeterministic(t *testing.T) {
	h1 := BuildHashFor("2.3000.1022419966")
	h2 := BuildHashFor("2.3000.1022419966")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 16)

	h3 := BuildHashFor("2.3000.0000000000")
	assert.False(t, bytes.Equal(h1, h3))
}

func TestPbEncodeBool_OmitsWhenFalse(t *testing.T) {
	assert.Nil(t, pbEncodeBool(18, false))
	assert.NotEmpty(t, pbEncodeBool(18, true))
}

func TestPbEncodeString_OmitsWhenEmpty(t *testing.T) {
	assert.Nil(t, pbEncodeString(3, ""))
	assert.NotEmpty(t, pbEncodeString(3, "000"))
}
