// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import (
	"crypto/aes"
	"crypto/cipher"
)

// newAESGCM builds an AES-256-GCM AEAD from a 32-byte key.
func newAESGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// nonceForCounter builds the 96-bit IV layout every AEAD operation in
// this codebase uses: 8 zero bytes followed by a big-endian 32-bit
// counter (spec.md §4.3, §4.4).
func nonceForCounter(counter uint32) [12]byte {
	var iv [12]byte
	iv[8] = byte(counter >> 24)
	iv[9] = byte(counter >> 16)
	iv[10] = byte(counter >> 8)
	iv[11] = byte(counter)
	return iv
}
