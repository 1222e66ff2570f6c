// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import (
	"crypto/cipher"
	"errors"
	"sync"
)

// ErrCounterExhausted marks a NoiseSocket direction that has sent or
// received 2^32 frames: the IV layout only has 32 bits for the
// counter, so reusing it would break AEAD's nonce-uniqueness
// requirement. Per spec.md §9, the session closes rather than rekeys.
var ErrCounterExhausted = errors.New("noise socket counter exhausted: session must be closed")

// NoiseSocket is the post-handshake AEAD transport: every outbound
// frame body is sealed under writeKey with an associated-data-free
// AEAD call, and every inbound body opened under readKey, each
// direction keeping its own monotonically increasing counter
// (spec.md §4.4). This is a deliberate extension over the reference
// client, which tracks only a read counter and reuses a single
// derived key for both directions.
//
// Counters are stored as uint64 (spec.md §4.2: "two independent
// 64-bit counters") but only their low 32 bits feed the nonce, since
// the IV layout reserves just 4 bytes for it; the socket refuses to
// reuse a nonce once a direction reaches 2^32.
type NoiseSocket struct {
	writeAEAD cipher.AEAD
	readAEAD  cipher.AEAD

	mu           sync.Mutex
	writeCounter uint64
	readCounter  uint64
}

func newNoiseSocket(writeKey, readKey [32]byte) (*NoiseSocket, error) {
	writeAEAD, err := newAESGCM(writeKey[:])
	if err != nil {
		return nil, err
	}
	readAEAD, err := newAESGCM(readKey[:])
	if err != nil {
		return nil, err
	}
	return &NoiseSocket{writeAEAD: writeAEAD, readAEAD: readAEAD}, nil
}

// Encrypt seals plaintext under the next write nonce. Associated data
// is empty, matching the reference client's post-handshake framing.
func (s *NoiseSocket) Encrypt(plaintext []byte) ([]byte, error) {
	s.mu.Lock()
	if s.writeCounter >= 1<<32 {
		s.mu.Unlock()
		return nil, ErrCounterExhausted
	}
	nonce := nonceForCounter(uint32(s.writeCounter))
	s.writeCounter++
	s.mu.Unlock()

	return s.writeAEAD.Seal(nil, nonce[:], plaintext, nil), nil
}

// Decrypt opens ciphertext under the next read nonce. Counters only
// advance on success, so a corrupt frame never desynchronizes the
// reader from frames that follow on a reliable transport; callers that
// see a TransportAuthError should treat the connection as unrecoverable
// rather than retry in place.
func (s *NoiseSocket) Decrypt(ciphertext []byte) ([]byte, error) {
	s.mu.Lock()
	if s.readCounter >= 1<<32 {
		s.mu.Unlock()
		return nil, ErrCounterExhausted
	}
	nonce := nonceForCounter(uint32(s.readCounter))
	s.mu.Unlock()

	plaintext, err := s.readAEAD.Open(nil, nonce[:], ciphertext, nil)
	if err != nil {
		return nil, &TransportAuthError{Err: err}
	}

	s.mu.Lock()
	s.readCounter++
	s.mu.Unlock()

	return plaintext, nil
}

// WriteCounter reports the number of frames successfully sent.
func (s *NoiseSocket) WriteCounter() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeCounter
}

// ReadCounter reports the number of frames successfully received.
func (s *NoiseSocket) ReadCounter() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readCounter
}
