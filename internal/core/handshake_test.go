package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fullHandshake runs a complete XX exchange between an in-process
// "client" Handshaker and a hand-rolled "server" side built directly
// from HandshakeState, mirroring the three messages spec.md §4.3
// describes. It returns both ends' transport sockets plus the
// certificate payload the client decrypted.
func fullHandshake(t *testing.T) (clientSocket, serverSocket *NoiseSocket, cert []byte) {
	t.Helper()

	clientDevice, err := NewDevice()
	require.NoError(t, err)
	serverStatic, err := NewKey()
	require.NoError(t, err)

	client, err := NewHandshaker(clientDevice, WireHeader[:])
	require.NoError(t, err)
	clientEphemeralPub := client.ClientHelloEphemeral()

	server := NewHandshakeState(WireHeader[:])
	server.Authenticate(clientEphemeralPub[:])

	serverEphemeral, err := NewKey()
	require.NoError(t, err)
	server.Authenticate(serverEphemeral.Public[:])

	eeSecret, err := dh(serverEphemeral.Private, clientEphemeralPub)
	require.NoError(t, err)
	require.NoError(t, server.MixSharedSecret(eeSecret))

	encryptedServerStatic, err := server.EncryptAndHash(serverStatic.Public[:])
	require.NoError(t, err)

	esSecret, err := dh(serverStatic.Private, clientEphemeralPub)
	require.NoError(t, err)
	require.NoError(t, server.MixSharedSecret(esSecret))

	serverCert := []byte("fake-certificate-bytes")
	encryptedCert, err := server.EncryptAndHash(serverCert)
	require.NoError(t, err)

	cert, err = client.ProcessServerHello(serverEphemeral.Public, encryptedServerStatic, encryptedCert)
	require.NoError(t, err)

	encryptedClientStatic, encryptedPayload, err := client.GenerateClientFinish([]byte("registration-payload"))
	require.NoError(t, err)

	clientStaticBytes, err := server.DecryptAndHash(encryptedClientStatic)
	require.NoError(t, err)
	var clientStatic [32]byte
	copy(clientStatic[:], clientStaticBytes)

	seSecret, err := dh(serverEphemeral.Private, clientStatic)
	require.NoError(t, err)
	require.NoError(t, server.MixSharedSecret(seSecret))

	gotPayload, err := server.DecryptAndHash(encryptedPayload)
	require.NoError(t, err)
	assert.Equal(t, []byte("registration-payload"), gotPayload)

	clientSocket, err = client.Finish()
	require.NoError(t, err)

	serverWriteKey, serverReadKey, err := server.Finish()
	require.NoError(t, err)
	// The server's write/read keys are the client's read/write keys
	// reversed, since each side derives the same two keys from the same
	// chaining salt but assigns them to opposite directions.
	serverSocket, err = newNoiseSocket(serverReadKey, serverWriteKey)
	require.NoError(t, err)

	return clientSocket, serverSocket, serverCert
}

func TestHandshake_FullExchangeProducesWorkingTransportKeys(t *testing.T) {
	clientSocket, serverSocket, cert := fullHandshake(t)
	assert.Equal(t, []byte("fake-certificate-bytes"), cert)

	ciphertext, err := clientSocket.Encrypt([]byte("hello from client"))
	require.NoError(t, err)

	plaintext, err := serverSocket.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello from client"), plaintext)
}

func TestHandshake_TranscriptDivergesIfHeaderDiffers(t *testing.T) {
	hs1 := NewHandshakeState(WireHeader[:])
	hs2 := NewHandshakeState([]byte{'X', 'X', 0, 0})
	assert.NotEqual(t, hs1.Hash(), hs2.Hash())
}

func TestHandshake_DecryptAndHash_FailureDoesNotAdvanceTranscript(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)

	hs := NewHandshakeState(WireHeader[:])
	require.NoError(t, hs.MixSharedSecret(key.Public))

	hashBefore := hs.Hash()
	_, err = hs.DecryptAndHash([]byte("not a valid ciphertext"))
	require.Error(t, err)
	assert.Equal(t, hashBefore, hs.Hash())
}

// TestHandshakeState_FixedVectorKeySchedule pins NewHandshakeState plus
// three MixSharedSecret/Finish calls against recorded key-schedule
// output for a fixed wire header and three fixed DH-secret fixtures
// standing in for the ee/es/se shared secrets (spec.md §8's handshake
// vector). The recorded values were computed independently via
// HMAC-SHA256/HKDF over the same inputs; a wrong initial transcript
// hash (e.g. hashing the already-32-byte protocol name again) changes
// every downstream salt and fails this test, unlike fullHandshake's
// round trip, which passes even if both ends make the same mistake.
func TestHandshakeState_FixedVectorKeySchedule(t *testing.T) {
	eeSecret := [32]byte{0xb8, 0xe7, 0x9e, 0x88, 0xa4, 0xf9, 0x28, 0xf9, 0x94, 0xbb, 0x46, 0x55, 0xb6, 0x55, 0x41, 0x38, 0xa1, 0x5c, 0x6d, 0x37, 0xec, 0x88, 0x5b, 0x6c, 0x0f, 0xa5, 0x4b, 0x92, 0x32, 0xda, 0x72, 0x49}
	esSecret := [32]byte{0x96, 0x7b, 0x08, 0xb9, 0x66, 0x84, 0xef, 0xb5, 0x44, 0x6c, 0xfb, 0xe3, 0x87, 0x6c, 0xe8, 0x01, 0xe9, 0x23, 0x08, 0xb9, 0x4b, 0x90, 0x4a, 0x75, 0xc1, 0xbd, 0x7c, 0x4b, 0x4b, 0x9d, 0x40, 0xc3}
	seSecret := [32]byte{0x84, 0x52, 0x43, 0x5b, 0x12, 0x03, 0x85, 0x03, 0x34, 0x32, 0xa1, 0xf9, 0xfe, 0x67, 0x61, 0x90, 0x10, 0xfd, 0xf6, 0xdd, 0x99, 0x3a, 0x3d, 0xe8, 0x40, 0x0c, 0xe5, 0xe4, 0xe0, 0x63, 0xa4, 0xd0}

	wantWriteKey := [32]byte{0xdb, 0x68, 0xee, 0x1f, 0xd4, 0x7c, 0x12, 0x25, 0xf8, 0xf2, 0x5e, 0xe1, 0x26, 0x03, 0x9f, 0x1c, 0xec, 0x39, 0xe2, 0xc3, 0x00, 0xeb, 0x45, 0x14, 0x1a, 0x76, 0xc9, 0x57, 0x63, 0xe4, 0xc4, 0x0f}
	wantReadKey := [32]byte{0x06, 0x69, 0xd9, 0x34, 0x9c, 0x96, 0x71, 0x33, 0x75, 0x38, 0x71, 0xa9, 0x70, 0xcd, 0xa6, 0xa0, 0xb0, 0x5c, 0x61, 0x14, 0x3e, 0x65, 0x50, 0xad, 0x19, 0xcd, 0x24, 0x87, 0xec, 0xeb, 0x23, 0x3d}

	hs := NewHandshakeState(WireHeader[:])
	require.NoError(t, hs.MixSharedSecret(eeSecret))
	require.NoError(t, hs.MixSharedSecret(esSecret))
	require.NoError(t, hs.MixSharedSecret(seSecret))

	writeKey, readKey, err := hs.Finish()
	require.NoError(t, err)
	assert.Equal(t, wantWriteKey, writeKey)
	assert.Equal(t, wantReadKey, readKey)
}

func TestHandshake_MixSharedSecretResetsCounter(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)

	hs := NewHandshakeState(WireHeader[:])
	require.NoError(t, hs.MixSharedSecret(key.Public))
	_, err = hs.EncryptAndHash([]byte("msg"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, hs.counter)

	require.NoError(t, hs.MixSharedSecret(key.Public))
	assert.EqualValues(t, 0, hs.counter)
}
