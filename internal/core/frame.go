// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

// WireHeader is the 4-byte prologue sent exactly once per connection,
// immediately preceding the first frame's length prefix (spec.md §6):
// ASCII "WA" + version major 6 + dict version 3.
var WireHeader = [4]byte{'W', 'A', 0x06, 0x03}

// FrameMaxSize is the largest payload a single frame can carry: 2^24
// bytes, since the length prefix is a 24-bit big-endian integer.
const FrameMaxSize = 1 << 24

// readerState names the FrameTransport.receiving state (spec.md §4.7).
type readerState int

const (
	awaitingHeader readerState = iota
	awaitingBody
)

// FrameTransport splits a bidirectional stream of carrier messages into
// self-delimited frames of up to 2^24 bytes (spec.md §4.1). It is not
// itself thread-safe; callers serialize access per spec.md §5.
type FrameTransport struct {
	prologueSent bool

	state    readerState
	header   []byte // partial 3-byte length header, accumulated across chunks
	length   int    // expected payload length, valid once state == awaitingBody
	received int    // bytes accumulated into body so far
	body     []byte
}

// NewFrameTransport returns a transport ready to emit the prologue on
// its first outbound frame and to receive arbitrarily chunked input.
func NewFrameTransport() *FrameTransport {
	return &FrameTransport{state: awaitingHeader}
}

// MakeFrame builds the bytes for one outbound frame: an optional
// prologue (only before the first frame of the connection), a 24-bit
// big-endian length prefix, and the payload.
func (t *FrameTransport) MakeFrame(payload []byte) ([]byte, error) {
	if len(payload) >= FrameMaxSize {
		return nil, &FrameTooLargeError{Size: len(payload)}
	}

	prologueLen := 0
	if !t.prologueSent {
		prologueLen = len(WireHeader)
	}

	frame := make([]byte, prologueLen+3+len(payload))
	if prologueLen > 0 {
		copy(frame, WireHeader[:])
	}
	putUint24(frame[prologueLen:], len(payload))
	copy(frame[prologueLen+3:], payload)

	t.prologueSent = true
	return frame, nil
}

func putUint24(dst []byte, v int) {
	dst[0] = byte(v >> 16)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v)
}

func getUint24(src []byte) int {
	return int(src[0])<<16 | int(src[1])<<8 | int(src[2])
}

// Feed accumulates inbound carrier bytes and returns every complete
// payload that becomes available, handling arbitrary carrier chunking
// (spec.md §4.1, §8 property 3).
func (t *FrameTransport) Feed(chunk []byte) [][]byte {
	var frames [][]byte
	rest := chunk

	for len(rest) > 0 {
		switch t.state {
		case awaitingHeader:
			need := 3 - len(t.header)
			take := min(need, len(rest))
			t.header = append(t.header, rest[:take]...)
			rest = rest[take:]

			if len(t.header) == 3 {
				t.length = getUint24(t.header)
				t.header = t.header[:0]
				t.received = 0
				t.body = make([]byte, 0, t.length)
				t.state = awaitingBody
				if t.length == 0 {
					frames = append(frames, t.body)
					t.state = awaitingHeader
				}
			}

		case awaitingBody:
			need := t.length - t.received
			take := min(need, len(rest))
			t.body = append(t.body, rest[:take]...)
			t.received += take
			rest = rest[take:]

			if t.received == t.length {
				frames = append(frames, t.body)
				t.state = awaitingHeader
				t.body = nil
			}
		}
	}

	return frames
}
