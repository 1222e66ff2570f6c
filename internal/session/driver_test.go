package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waconnect/wacore/internal/core"
)

// fakeCarrier is an in-memory Carrier double: Write appends to a log a
// test can inspect, Read blocks on a channel a test can feed.
type fakeCarrier struct {
	mu       sync.Mutex
	writes   [][]byte
	inbound  chan []byte
	closed   bool
	closeErr error
}

func newFakeCarrier() *fakeCarrier {
	return &fakeCarrier{inbound: make(chan []byte, 8)}
}

func (f *fakeCarrier) Write(ctx context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	f.writes = append(f.writes, cp)
	return nil
}

func (f *fakeCarrier) Read(ctx context.Context) ([]byte, error) {
	select {
	case b, ok := <-f.inbound:
		if !ok {
			return nil, context.Canceled
		}
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeCarrier) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return f.closeErr
}

func newTestSession(t *testing.T) (*Session, *fakeCarrier) {
	t.Helper()
	device, err := core.NewDevice()
	require.NoError(t, err)

	carrier := newFakeCarrier()
	s, err := New(carrier, device, zap.NewNop().Sugar())
	require.NoError(t, err)
	return s, carrier
}

func TestState_StringCoversEveryValue(t *testing.T) {
	cases := map[State]string{
		StateConnecting:        "connecting",
		StateHandshakeSent:     "handshake_sent",
		StateHandshakeReceived: "handshake_received",
		StateAuthenticated:     "authenticated",
		StateClosed:            "closed",
		State(99):              "unknown",
	}
	for state, want := range cases {
		assert.Equal(t, want, state.String())
	}
}

func TestNew_StartsInConnectingState(t *testing.T) {
	s, _ := newTestSession(t)
	assert.Equal(t, StateConnecting, s.State())
}

func TestSetState_IsObservedByState(t *testing.T) {
	s, _ := newTestSession(t)
	s.setState(StateAuthenticated)
	assert.Equal(t, StateAuthenticated, s.State())
}

func TestNextRequestID_MonotonicAndFormatted(t *testing.T) {
	s, _ := newTestSession(t)

	id1 := s.nextRequestID()
	id2 := s.nextRequestID()
	id3 := s.nextRequestID()

	assert.Equal(t, s.uniqueID+"0", id1)
	assert.Equal(t, s.uniqueID+"1", id2)
	assert.Equal(t, s.uniqueID+"2", id3)
}

func TestSendNode_RejectsSendOnClosedSession(t *testing.T) {
	s, _ := newTestSession(t)
	s.setState(StateClosed)

	err := s.SendNode(context.Background(), core.NewNode("iq"))
	require.Error(t, err)
	var protoErr *core.ProtocolError
	assert.ErrorAs(t, err, &protoErr)
}

func TestSendIQ_StillAllocatesRequestIDOnClosedSession(t *testing.T) {
	s, _ := newTestSession(t)
	s.setState(StateClosed)

	id, err := s.SendIQ(context.Background(), Query{Namespace: "w:p", Type: "get", Content: core.NewNode("ping")})
	require.Error(t, err)
	assert.Equal(t, s.uniqueID+"0", id)
}

func TestFail_IsIdempotentAndInvokesOnCloseOnce(t *testing.T) {
	s, carrier := newTestSession(t)

	var calls int
	var gotErr error
	s.OnClose(func(err error) {
		calls++
		gotErr = err
	})

	sentinel := &core.ProtocolError{Reason: "boom"}
	s.fail(sentinel)
	s.fail(sentinel)
	s.Close()

	assert.Equal(t, 1, calls)
	assert.Equal(t, sentinel, gotErr)
	assert.Equal(t, StateClosed, s.State())
	assert.True(t, carrier.closed)

	select {
	case <-s.closed:
	default:
		t.Fatal("closed channel was not closed")
	}
}

func TestClose_InvokesOnCloseWithNilError(t *testing.T) {
	s, _ := newTestSession(t)

	var gotErr error
	var called bool
	s.OnClose(func(err error) {
		called = true
		gotErr = err
	})

	require.NoError(t, s.Close())
	assert.True(t, called)
	assert.NoError(t, gotErr)
}

func TestRandomDuration_StaysWithinBounds(t *testing.T) {
	for i := 0; i < 50; i++ {
		d, err := randomDuration(keepAliveMinInterval, keepAliveMaxInterval)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, d, keepAliveMinInterval)
		assert.LessOrEqual(t, d, keepAliveMaxInterval)
	}
}

func TestDispatch_UnknownTagDoesNotPanic(t *testing.T) {
	s, _ := newTestSession(t)
	assert.NotPanics(t, func() {
		s.dispatch(context.Background(), core.NewNode("notification"))
	})
}

func TestDispatch_IqWithNoChildrenDoesNotPanic(t *testing.T) {
	s, _ := newTestSession(t)
	assert.NotPanics(t, func() {
		s.dispatch(context.Background(), core.NewNode("iq"))
	})
}
