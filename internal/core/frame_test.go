package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeFrame_PrologueOnlyOnFirstCall(t *testing.T) {
	ft := NewFrameTransport()

	first, err := ft.MakeFrame([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, WireHeader[:], first[:4])

	second, err := ft.MakeFrame([]byte("world"))
	require.NoError(t, err)
	assert.NotEqual(t, WireHeader[:], second[:4])
}

func TestMakeFrame_RejectsOversizePayload(t *testing.T) {
	ft := NewFrameTransport()
	_, err := ft.MakeFrame(make([]byte, FrameMaxSize))
	require.Error(t, err)
	var tooLarge *FrameTooLargeError
	assert.ErrorAs(t, err, &tooLarge)
}

func TestFeed_SingleChunkWholeFrame(t *testing.T) {
	ft := NewFrameTransport()
	payload := []byte("payload-bytes")

	buf := make([]byte, 0, 3+len(payload))
	buf = append(buf, 0, 0, byte(len(payload)))
	buf = append(buf, payload...)

	frames := ft.Feed(buf)
	require.Len(t, frames, 1)
	assert.Equal(t, payload, frames[0])
}

func TestFeed_ArbitraryByteAtATimeChunking(t *testing.T) {
	ft := NewFrameTransport()
	payload := []byte("the quick brown fox jumps over the lazy dog")

	buf := make([]byte, 0, 3+len(payload))
	buf = append(buf, 0, 0, byte(len(payload)))
	buf = append(buf, payload...)

	var got [][]byte
	for _, b := range buf {
		got = append(got, ft.Feed([]byte{b})...)
	}
	require.Len(t, got, 1)
	assert.Equal(t, payload, got[0])
}

func TestFeed_MultipleFramesAcrossOneChunk(t *testing.T) {
	ft := NewFrameTransport()

	var buf []byte
	for _, p := range [][]byte{[]byte("one"), []byte("two"), []byte("three")} {
		buf = append(buf, 0, 0, byte(len(p)))
		buf = append(buf, p...)
	}

	frames := ft.Feed(buf)
	require.Len(t, frames, 3)
	assert.Equal(t, []byte("one"), frames[0])
	assert.Equal(t, []byte("two"), frames[1])
	assert.Equal(t, []byte("three"), frames[2])
}

func TestFeed_SplitAcrossHeaderBoundary(t *testing.T) {
	ft := NewFrameTransport()
	payload := []byte("split-me")
	buf := append([]byte{0, 0, byte(len(payload))}, payload...)

	var got [][]byte
	// Split mid-header: first chunk carries only 2 of the 3 length bytes.
	got = append(got, ft.Feed(buf[:2])...)
	got = append(got, ft.Feed(buf[2:])...)

	require.Len(t, got, 1)
	assert.Equal(t, payload, got[0])
}

func TestFeed_ZeroLengthFrame(t *testing.T) {
	ft := NewFrameTransport()
	frames := ft.Feed([]byte{0, 0, 0})
	require.Len(t, frames, 1)
	assert.Equal(t, []byte{}, frames[0])
}

func TestPutGetUint24_BoundaryValues(t *testing.T) {
	for _, v := range []int{0, 1, 255, 65535, FrameMaxSize - 1} {
		var buf [3]byte
		putUint24(buf[:], v)
		assert.Equal(t, v, getUint24(buf[:]))
	}
}
