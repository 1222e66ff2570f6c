// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// NoisePattern is the protocol name mixed into the initial handshake
// hash, padded to 32 bytes with trailing zeroes (spec.md §4.3).
var NoisePattern = []byte("Noise_XX_25519_AESGCM_SHA256\x00\x00\x00\x00")

// HandshakeState carries the Noise XX symmetric state: a running
// transcript hash, a chaining salt, and the current AEAD key. The key
// and its nonce counter are replaced wholesale on every DH mix
// (spec.md §4.3).
type HandshakeState struct {
	hash    [32]byte
	salt    [32]byte
	key     []byte
	counter uint32
}

// NewHandshakeState seeds the transcript from the protocol name and
// authenticates the wire header into it, matching the reference
// client's start(header) step.
func NewHandshakeState(header []byte) *HandshakeState {
	hs := &HandshakeState{}
	if len(NoisePattern) == 32 {
		copy(hs.hash[:], NoisePattern)
	} else {
		hs.hash = sha256.Sum256(NoisePattern)
	}
	hs.salt = hs.hash
	hs.Authenticate(header)
	return hs
}

// Authenticate folds data into the transcript hash: hash = SHA256(hash||data).
func (hs *HandshakeState) Authenticate(data []byte) {
	buf := make([]byte, 0, 32+len(data))
	buf = append(buf, hs.hash[:]...)
	buf = append(buf, data...)
	hs.hash = sha256.Sum256(buf)
}

// Hash returns the current transcript hash, used as AEAD associated data.
func (hs *HandshakeState) Hash() [32]byte { return hs.hash }

// MixSharedSecret runs one DH step of the handshake: it folds dh into
// the chaining salt via HKDF, replaces the current AEAD key with the
// derived key, and resets the nonce counter to zero (spec.md §4.3).
func (hs *HandshakeState) MixSharedSecret(dh [32]byte) error {
	return hs.mixIntoKey(dh[:])
}

func (hs *HandshakeState) mixIntoKey(ikm []byte) error {
	r := hkdf.New(sha256.New, ikm, hs.salt[:], nil)
	out := make([]byte, 64)
	if _, err := io.ReadFull(r, out); err != nil {
		return err
	}
	copy(hs.salt[:], out[:32])
	hs.key = append([]byte(nil), out[32:]...)
	hs.counter = 0
	return nil
}

// EncryptAndHash AEAD-encrypts plaintext under the current key with the
// transcript hash as associated data, then folds the ciphertext into
// the transcript (spec.md §4.3).
func (hs *HandshakeState) EncryptAndHash(plaintext []byte) ([]byte, error) {
	aead, err := newAESGCM(hs.key)
	if err != nil {
		return nil, &HandshakeAuthError{Err: err}
	}
	nonce := nonceForCounter(hs.counter)
	hs.counter++

	ciphertext := aead.Seal(nil, nonce[:], plaintext, hs.hash[:])
	hs.Authenticate(ciphertext)
	return ciphertext, nil
}

// DecryptAndHash is EncryptAndHash's inverse: it authenticates the
// ciphertext into the transcript only after a successful open, so a
// failed decryption never desynchronizes the hash chain from the peer.
func (hs *HandshakeState) DecryptAndHash(ciphertext []byte) ([]byte, error) {
	aead, err := newAESGCM(hs.key)
	if err != nil {
		return nil, &HandshakeAuthError{Err: err}
	}
	nonce := nonceForCounter(hs.counter)
	hs.counter++

	plaintext, err := aead.Open(nil, nonce[:], ciphertext, hs.hash[:])
	if err != nil {
		return nil, &HandshakeAuthError{Err: err}
	}
	hs.Authenticate(ciphertext)
	return plaintext, nil
}

// Finish derives the pair of independent transport keys from the final
// chaining salt with an empty input, per the Noise split() step
// (spec.md §4.3). The handshake state must not be reused afterward.
func (hs *HandshakeState) Finish() (writeKey, readKey [32]byte, err error) {
	r := hkdf.New(sha256.New, nil, hs.salt[:], nil)
	out := make([]byte, 64)
	if _, err := io.ReadFull(r, out); err != nil {
		return writeKey, readKey, err
	}
	copy(writeKey[:], out[:32])
	copy(readKey[:], out[32:])
	return writeKey, readKey, nil
}

func dh(priv, pub [32]byte) ([32]byte, error) {
	var out [32]byte
	shared, err := curve25519.X25519(priv[:], pub[:])
	if err != nil {
		return out, err
	}
	copy(out[:], shared)
	return out, nil
}

// Handshaker drives the three-message Noise XX exchange used to
// establish a session (spec.md §4.3). It owns the ephemeral key pair
// generated for this connection and the server's public keys as they
// arrive; the protobuf envelope for each message is built by the
// session layer.
type Handshaker struct {
	state     *HandshakeState
	device    *Device
	ephemeral Key

	serverEphemeral [32]byte
	serverStatic    [32]byte
}

// NewHandshaker starts a handshake for device, authenticating header
// (the 4-byte wire prologue) into the transcript.
func NewHandshaker(device *Device, header []byte) (*Handshaker, error) {
	ephemeral, err := NewKey()
	if err != nil {
		return nil, err
	}
	return &Handshaker{
		state:     NewHandshakeState(header),
		device:    device,
		ephemeral: ephemeral,
	}, nil
}

// ClientHelloEphemeral returns this connection's fresh ephemeral public
// key, authenticated into the transcript and ready to send as message 1.
func (h *Handshaker) ClientHelloEphemeral() [32]byte {
	h.state.Authenticate(h.ephemeral.Public[:])
	return h.ephemeral.Public
}

// ProcessServerHello consumes message 2 (the server's ephemeral key plus
// its encrypted static key and certificate payload), running the ee and
// es DH mixes and returning the decrypted certificate bytes for the
// caller to validate against the revealed server static key.
func (h *Handshaker) ProcessServerHello(serverEphemeral [32]byte, encryptedStatic, encryptedPayload []byte) (cert []byte, err error) {
	h.serverEphemeral = serverEphemeral
	h.state.Authenticate(serverEphemeral[:])

	eeSecret, err := dh(h.ephemeral.Private, serverEphemeral)
	if err != nil {
		return nil, err
	}
	if err := h.state.MixSharedSecret(eeSecret); err != nil {
		return nil, err
	}

	staticBytes, err := h.state.DecryptAndHash(encryptedStatic)
	if err != nil {
		return nil, err
	}
	copy(h.serverStatic[:], staticBytes)

	esSecret, err := dh(h.ephemeral.Private, h.serverStatic)
	if err != nil {
		return nil, err
	}
	if err := h.state.MixSharedSecret(esSecret); err != nil {
		return nil, err
	}

	return h.state.DecryptAndHash(encryptedPayload)
}

// ServerStaticKey returns the server's static public key revealed by
// ProcessServerHello, for certificate validation.
func (h *Handshaker) ServerStaticKey() [32]byte { return h.serverStatic }

// GenerateClientFinish produces message 3: the client's own static key
// (the device noise key), encrypted, followed by the se DH mix and the
// encrypted client payload.
func (h *Handshaker) GenerateClientFinish(payload []byte) (encryptedStatic, encryptedPayload []byte, err error) {
	encryptedStatic, err = h.state.EncryptAndHash(h.device.NoiseKey.Public[:])
	if err != nil {
		return nil, nil, err
	}

	seSecret, err := dh(h.device.NoiseKey.Private, h.serverEphemeral)
	if err != nil {
		return nil, nil, err
	}
	if err := h.state.MixSharedSecret(seSecret); err != nil {
		return nil, nil, err
	}

	encryptedPayload, err = h.state.EncryptAndHash(payload)
	if err != nil {
		return nil, nil, err
	}
	return encryptedStatic, encryptedPayload, nil
}

// Finish completes the handshake and returns the transport socket that
// carries all subsequent traffic on this connection.
func (h *Handshaker) Finish() (*NoiseSocket, error) {
	writeKey, readKey, err := h.state.Finish()
	if err != nil {
		return nil, err
	}
	return newNoiseSocket(writeKey, readKey)
}
