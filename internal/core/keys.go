// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"encoding/binary"

	"golang.org/x/crypto/curve25519"
)

// djbKeyType is the curve-type marker mixed into pre-key signatures,
// preserved from the Signal pre-key convention (spec.md §4.2).
const djbKeyType = 0x05

// Key is an X25519 key pair. Long-term (identity, noise) or ephemeral
// (handshake), depending on where it's generated.
type Key struct {
	Public  [32]byte
	Private [32]byte
}

// NewKey generates a fresh X25519 key pair from a CSPRNG.
func NewKey() (Key, error) {
	var k Key
	if _, err := rand.Read(k.Private[:]); err != nil {
		return Key{}, err
	}
	curve25519.ScalarBaseMult(&k.Public, &k.Private)
	return k, nil
}

// Sign produces a 64-byte Ed25519-form signature over the DJB-type byte
// followed by keyToSign's public bytes, using an Ed25519 signing key
// derived deterministically from k's X25519 private scalar:
// SHA-512(priv)[:32] becomes the Ed25519 seed. This is not standard Noise
// behaviour; it matches the Signal pre-key convention and must be
// preserved bit-for-bit to interoperate (spec.md §9).
func (k Key) Sign(keyToSign [32]byte) [64]byte {
	seed := sha512.Sum512(k.Private[:])
	signingKey := ed25519.NewKeyFromSeed(seed[:32])

	msg := make([]byte, 33)
	msg[0] = djbKeyType
	copy(msg[1:], keyToSign[:])

	sig := ed25519.Sign(signingKey, msg)
	var out [64]byte
	copy(out[:], sig)
	return out
}

// PreKey is an X25519 key pair bound to a 32-bit identifier and signed by
// the identity key that issued it.
type PreKey struct {
	Key       Key
	ID        uint32
	Signature [64]byte
}

// NewSignedPreKey generates a fresh pre-key with the given id and signs
// it with signer (the device's identity key).
func NewSignedPreKey(signer Key, id uint32) (PreKey, error) {
	key, err := NewKey()
	if err != nil {
		return PreKey{}, err
	}
	pk := PreKey{Key: key, ID: id}
	pk.Signature = signer.Sign(key.Public)
	return pk, nil
}

// Device is the persistent collection of long-term key material that
// identifies a WhatsApp Web client. Created once; treated as immutable
// by the core (spec.md §3).
type Device struct {
	NoiseKey       Key
	IdentityKey    Key
	SignedPreKey   PreKey
	RegistrationID uint32
	AdvSecret      [32]byte
}

// NewDevice generates a fresh Device: a noise key, an identity key, a
// signed pre-key (id 1) over that identity, a random registration id,
// and a random advertising secret.
func NewDevice() (*Device, error) {
	noiseKey, err := NewKey()
	if err != nil {
		return nil, err
	}
	identityKey, err := NewKey()
	if err != nil {
		return nil, err
	}
	signedPreKey, err := NewSignedPreKey(identityKey, 1)
	if err != nil {
		return nil, err
	}

	var regIDBytes [4]byte
	if _, err := rand.Read(regIDBytes[:]); err != nil {
		return nil, err
	}
	registrationID := binary.BigEndian.Uint32(regIDBytes[:]) & 0x7FFFFFFF

	var advSecret [32]byte
	if _, err := rand.Read(advSecret[:]); err != nil {
		return nil, err
	}

	return &Device{
		NoiseKey:       noiseKey,
		IdentityKey:    identityKey,
		SignedPreKey:   signedPreKey,
		RegistrationID: registrationID,
		AdvSecret:      advSecret,
	}, nil
}
