package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSocketPair(t *testing.T) (a, b *NoiseSocket) {
	t.Helper()
	var k1, k2 [32]byte
	copy(k1[:], []byte("11111111111111111111111111111111"))
	copy(k2[:], []byte("22222222222222222222222222222222"))

	a, err := newNoiseSocket(k1, k2)
	require.NoError(t, err)
	b, err = newNoiseSocket(k2, k1)
	require.NoError(t, err)
	return a, b
}

func TestNoiseSocket_EncryptDecryptRoundTrip(t *testing.T) {
	a, b := newTestSocketPair(t)

	ciphertext, err := a.Encrypt([]byte("ping"))
	require.NoError(t, err)

	plaintext, err := b.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), plaintext)
}

func TestNoiseSocket_CountersAdvanceIndependently(t *testing.T) {
	a, b := newTestSocketPair(t)

	for i := 0; i < 3; i++ {
		ciphertext, err := a.Encrypt([]byte("msg"))
		require.NoError(t, err)
		_, err = b.Decrypt(ciphertext)
		require.NoError(t, err)
	}

	assert.EqualValues(t, 3, a.WriteCounter())
	assert.EqualValues(t, 3, b.ReadCounter())
	assert.EqualValues(t, 0, a.ReadCounter())
	assert.EqualValues(t, 0, b.WriteCounter())
}

func TestNoiseSocket_DecryptFailureDoesNotAdvanceCounter(t *testing.T) {
	a, b := newTestSocketPair(t)

	_, err := b.Decrypt([]byte("not-a-real-ciphertext-at-all!!!"))
	require.Error(t, err)
	var authErr *TransportAuthError
	assert.ErrorAs(t, err, &authErr)
	assert.EqualValues(t, 0, b.ReadCounter())
}

func TestNoiseSocket_CounterExhaustionClosesDirection(t *testing.T) {
	a, _ := newTestSocketPair(t)
	a.writeCounter = 1 << 32

	_, err := a.Encrypt([]byte("one too many"))
	assert.ErrorIs(t, err, ErrCounterExhausted)
}

func TestNoiseSocket_WrongKeyFailsToDecrypt(t *testing.T) {
	a, _ := newTestSocketPair(t)
	var other [32]byte
	copy(other[:], []byte("33333333333333333333333333333333"))
	stranger, err := newNoiseSocket(other, other)
	require.NoError(t, err)

	ciphertext, err := a.Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = stranger.Decrypt(ciphertext)
	assert.Error(t, err)
}
