package session

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waconnect/wacore/internal/core"
)

func refNode(ref string) *core.Node {
	return &core.Node{Tag: "ref", Content: &core.Value{Kind: core.KindBytes, Bytes: []byte(ref)}}
}

func withChildren(n *core.Node, children ...*core.Node) *core.Node {
	v := core.ListValue(children)
	n.Content = &v
	return n
}

func TestBuildQRPayload_Format(t *testing.T) {
	s, _ := newTestSession(t)

	payload := s.buildQRPayload("some-ref")
	parts := strings.Split(payload, ",")
	require.Len(t, parts, 4)

	assert.Equal(t, "some-ref", parts[0])
	assert.Equal(t, base64.StdEncoding.EncodeToString(s.device.NoiseKey.Public[:]), parts[1])
	assert.Equal(t, base64.StdEncoding.EncodeToString(s.device.IdentityKey.Public[:]), parts[2])
	assert.Equal(t, base64.StdEncoding.EncodeToString(s.device.AdvSecret[:]), parts[3])
}

func TestHandlePairDevice_AcksAndEmitsFirstRefOnly(t *testing.T) {
	s, carrier := newTestSession(t)
	s.setState(StateAuthenticated)

	var gotQR string
	var qrCalls int
	s.OnQR(func(qr string) {
		qrCalls++
		gotQR = qr
	})

	iqNode := &core.Node{
		Tag: "iq",
		Attrs: map[string]core.Value{
			"from": core.StringValue("s.whatsapp.net"),
			"id":   core.StringValue("abc123"),
		},
	}
	pairDevice := withChildren(core.NewNode("pair-device"), refNode("ref-one"), refNode("ref-two"))

	s.handlePairDevice(context.Background(), iqNode, pairDevice)

	require.Len(t, carrier.writes, 1)
	assert.Equal(t, 1, qrCalls)
	assert.True(t, strings.HasPrefix(gotQR, "ref-one,"))
}

func TestHandlePairDevice_NoRefChildrenEmitsNoQR(t *testing.T) {
	s, carrier := newTestSession(t)
	s.setState(StateAuthenticated)

	var qrCalls int
	s.OnQR(func(string) { qrCalls++ })

	iqNode := &core.Node{
		Tag:   "iq",
		Attrs: map[string]core.Value{"from": core.StringValue("s.whatsapp.net"), "id": core.StringValue("x")},
	}
	pairDevice := core.NewNode("pair-device")

	s.handlePairDevice(context.Background(), iqNode, pairDevice)

	require.Len(t, carrier.writes, 1)
	assert.Equal(t, 0, qrCalls)
}

func TestHandlePairDevice_AckFailureSkipsQR(t *testing.T) {
	s, _ := newTestSession(t)
	// Closed session makes SendNode fail before any QR codes are built.
	s.setState(StateClosed)

	var qrCalls int
	s.OnQR(func(string) { qrCalls++ })

	iqNode := &core.Node{
		Tag:   "iq",
		Attrs: map[string]core.Value{"from": core.StringValue("s.whatsapp.net"), "id": core.StringValue("x")},
	}
	pairDevice := withChildren(core.NewNode("pair-device"), refNode("ref-one"))

	s.handlePairDevice(context.Background(), iqNode, pairDevice)
	assert.Equal(t, 0, qrCalls)
}

func TestHandlePairSuccess_ExtractsPhoneFromDeviceJID(t *testing.T) {
	s, _ := newTestSession(t)

	var gotPhone string
	var calls int
	s.OnPairSuccess(func(phone string) {
		calls++
		gotPhone = phone
	})

	device := &core.Node{
		Tag: "device",
		Attrs: map[string]core.Value{
			"jid": core.JIDValue(core.NewJID("15551234567", "s.whatsapp.net")),
		},
	}

	s.handlePairSuccess(device)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "15551234567", gotPhone)
}

func TestHandlePairSuccess_NoDeviceChildDoesNotPanic(t *testing.T) {
	s, _ := newTestSession(t)
	s.OnPairSuccess(func(string) { t.Fatal("should not be called") })

	assert.NotPanics(t, func() {
		s.handlePairSuccess(nil)
	})
}

func TestHandlePairSuccess_DeviceWithoutJIDAttrDoesNotPanic(t *testing.T) {
	s, _ := newTestSession(t)
	s.OnPairSuccess(func(string) { t.Fatal("should not be called") })

	device := core.NewNode("device")
	assert.NotPanics(t, func() {
		s.handlePairSuccess(device)
	})
}

func TestHandlePairing_DispatchesOnFirstChildTag(t *testing.T) {
	s, carrier := newTestSession(t)
	s.setState(StateAuthenticated)

	var qrCalls int
	s.OnQR(func(string) { qrCalls++ })

	pairDevice := withChildren(core.NewNode("pair-device"), refNode("ref-a"))
	iqNode := &core.Node{
		Tag: "iq",
		Attrs: map[string]core.Value{
			"from": core.StringValue("s.whatsapp.net"),
			"id":   core.StringValue("abc"),
		},
	}
	iqNode = withChildren(iqNode, pairDevice)

	s.handlePairing(context.Background(), iqNode)
	require.Len(t, carrier.writes, 1)
	assert.Equal(t, 1, qrCalls)
}

func TestHandlePairing_NoChildrenIsNoop(t *testing.T) {
	s, carrier := newTestSession(t)
	s.handlePairing(context.Background(), core.NewNode("iq"))
	assert.Empty(t, carrier.writes)
}
