// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

// Error taxonomy for the core transport/codec pipeline. Each category is
// a distinct type so callers can type-switch instead of matching strings.

// CarrierError wraps a failure surfaced by the underlying WebSocket carrier.
type CarrierError struct {
	Err error
}

func (e *CarrierError) Error() string { return "carrier error: " + e.Err.Error() }
func (e *CarrierError) Unwrap() error { return e.Err }

// FrameTooLargeError is returned when an outbound payload is >= 2^24 bytes.
type FrameTooLargeError struct {
	Size int
}

func (e *FrameTooLargeError) Error() string {
	return "frame too large to send over the wire"
}

// HandshakeAuthError marks an AEAD failure during the Noise XX handshake.
type HandshakeAuthError struct {
	Err error
}

func (e *HandshakeAuthError) Error() string { return "handshake authentication failed: " + e.Err.Error() }
func (e *HandshakeAuthError) Unwrap() error { return e.Err }

// TransportAuthError marks an AEAD failure on a post-handshake transport frame.
type TransportAuthError struct {
	Err error
}

func (e *TransportAuthError) Error() string { return "transport authentication failed: " + e.Err.Error() }
func (e *TransportAuthError) Unwrap() error { return e.Err }

// DecodeError marks malformed binary-XML: invalid token, truncated buffer,
// or a value of the wrong kind where a string was expected.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string { return "binary decode error: " + e.Reason }

// ProtocolError marks an unexpected node shape where a specific response
// was required by the caller.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "protocol error: " + e.Reason }

// EmptyNodeError is the specific DecodeError case of a zero-arity node.
func newEmptyNodeError() *DecodeError {
	return &DecodeError{Reason: "empty node: list arity is zero"}
}
