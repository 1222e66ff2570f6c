// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

// Package session drives one connected WhatsApp Web session: the Noise
// XX handshake, the inbound decode-and-dispatch loop, and outbound
// request/notification sends (spec.md §4.6, §4.7, §5).
package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/waconnect/wacore/internal/core"
)

// WhatsApp Web carrier endpoint (spec.md §6).
const (
	CarrierURL    = "wss://web.whatsapp.com/ws/chat"
	CarrierOrigin = "https://web.whatsapp.com"
)

// AppVersion is the client version advertised during registration
// (spec.md §6).
const AppVersion = "2.3000.1022419966"

// Carrier is the out-of-scope collaborator a Session drives: a
// bidirectional binary-message transport (spec.md §1). A
// `nhooyr.io/websocket` connection satisfies it directly.
type Carrier interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// State is one node of the session state machine (spec.md §4.7):
// Connecting → HandshakeSent → HandshakeReceived → Authenticated →
// Closed. All failures are terminal transitions to Closed.
type State int

const (
	StateConnecting State = iota
	StateHandshakeSent
	StateHandshakeReceived
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateHandshakeSent:
		return "handshake_sent"
	case StateHandshakeReceived:
		return "handshake_received"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	keepAliveMinInterval = 20 * time.Second
	keepAliveMaxInterval = 30 * time.Second
	keepAliveDeadLine    = 180 * time.Second
)

// Session drives one connected WhatsApp Web session. The core is
// single-threaded per session from the perspective of protocol state
// (spec.md §5): outbound sends are serialized behind outMu, and only
// the inbound goroutine touches the frame transport and NoiseSocket's
// read side.
type Session struct {
	carrier Carrier
	device  *core.Device
	logger  *zap.SugaredLogger

	frame *core.FrameTransport

	// outMu serializes everything from node-serialization through the
	// carrier write, so no two outbound sends interleave their AEAD
	// encrypt + counter increment + carrier write (spec.md §5).
	outMu sync.Mutex
	noise *core.NoiseSocket

	stateMu sync.RWMutex
	state   State

	uniqueID   string
	idCounter  uint64
	requestsMu sync.Mutex

	onQR          func(string)
	onPairSuccess func(phone string)
	onClose       func(error)

	lastInbound atomic64
	closeOnce   sync.Once
	closed      chan struct{}
}

// atomic64 is a tiny monotonic-clock holder guarded by its own mutex;
// it exists only so the keepalive watchdog can read the last-inbound
// timestamp from a different goroutine than the one that sets it.
type atomic64 struct {
	mu sync.Mutex
	t  time.Time
}

func (a *atomic64) set(t time.Time) {
	a.mu.Lock()
	a.t = t
	a.mu.Unlock()
}

func (a *atomic64) get() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.t
}

// New builds a Session bound to an already-dialed carrier. Call
// Connect to run the handshake and start the inbound loop.
func New(carrier Carrier, device *core.Device, logger *zap.SugaredLogger) (*Session, error) {
	var idBytes [2]byte
	if _, err := rand.Read(idBytes[:]); err != nil {
		return nil, err
	}

	return &Session{
		carrier:  carrier,
		device:   device,
		logger:   logger,
		frame:    core.NewFrameTransport(),
		state:    StateConnecting,
		uniqueID: fmt.Sprintf("%d.%d-", idBytes[0], idBytes[1]),
		closed:   make(chan struct{}),
	}, nil
}

// State returns the session's current state.
func (s *Session) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.stateMu.Lock()
	s.state = st
	s.stateMu.Unlock()
}

// OnQR registers the callback invoked with the first QR pairing code.
func (s *Session) OnQR(fn func(string)) { s.onQR = fn }

// OnPairSuccess registers the callback invoked once a pair-success
// node reveals the linked phone number.
func (s *Session) OnPairSuccess(fn func(phone string)) { s.onPairSuccess = fn }

// OnClose registers the callback invoked when the session transitions
// to Closed, with the error that caused it (nil for a clean close).
func (s *Session) OnClose(fn func(error)) { s.onClose = fn }

// Connect runs the Noise XX handshake (spec.md §4.3) and, on success,
// starts the inbound dispatch loop and keepalive watchdog.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.handshake(ctx); err != nil {
		s.fail(err)
		return err
	}

	s.setState(StateAuthenticated)
	s.lastInbound.set(time.Now())

	go s.inboundLoop(ctx)
	go s.keepAliveLoop(ctx)
	return nil
}

func (s *Session) handshake(ctx context.Context) error {
	hs, err := core.NewHandshaker(s.device, core.WireHeader[:])
	if err != nil {
		return err
	}

	ephemeral := hs.ClientHelloEphemeral()
	clientHello := core.EncodeClientHello(ephemeral[:])
	if err := s.sendFrame(ctx, clientHello); err != nil {
		return fmt.Errorf("sending client hello: %w", err)
	}
	s.setState(StateHandshakeSent)

	serverHelloFrame, err := s.readFrame(ctx)
	if err != nil {
		return fmt.Errorf("reading server hello: %w", err)
	}
	serverHello, err := core.DecodeServerHello(serverHelloFrame)
	if err != nil {
		return fmt.Errorf("decoding server hello: %w", err)
	}
	if len(serverHello.Ephemeral) != 32 {
		return &core.ProtocolError{Reason: "server hello ephemeral key is not 32 bytes"}
	}
	var serverEphemeral [32]byte
	copy(serverEphemeral[:], serverHello.Ephemeral)

	// The certificate is decrypted but not parsed or validated: spec.md
	// §9 leaves certificate validation as an explicit open question
	// with no required behavior.
	if _, err := hs.ProcessServerHello(serverEphemeral, serverHello.Static, serverHello.Payload); err != nil {
		return fmt.Errorf("processing server hello: %w", err)
	}
	s.setState(StateHandshakeReceived)

	payload := s.buildRegistrationPayload()
	encryptedStatic, encryptedPayload, err := hs.GenerateClientFinish(payload)
	if err != nil {
		return fmt.Errorf("generating client finish: %w", err)
	}
	clientFinish := core.EncodeClientFinish(encryptedStatic, encryptedPayload)
	if err := s.sendFrame(ctx, clientFinish); err != nil {
		return fmt.Errorf("sending client finish: %w", err)
	}

	noiseSocket, err := hs.Finish()
	if err != nil {
		return err
	}
	s.noise = noiseSocket
	return nil
}

func (s *Session) buildRegistrationPayload() []byte {
	d := s.device
	return core.EncodeClientPayload(core.ClientPayload{
		UserAgent: core.UserAgent{
			Platform:                    core.WebPlatform,
			AppVersion:                  core.AppVersion{Primary: 2, Secondary: 3000, Tertiary: 1022419966},
			MCC:                         "000",
			MNC:                         "000",
			OSVersion:                   "0.1.0",
			Manufacturer:                "",
			Device:                      "Desktop",
			OSBuildNumber:               "0.1.0",
			LocaleLanguageISO6391:       "en",
			LocaleCountryISO31661Alpha2: "en",
		},
		WebInfo:       core.WebInfo{WebSubPlatform: 0},
		ConnectType:   1,
		ConnectReason: 1,
		DevicePairing: &core.DevicePairingRegistrationData{
			ERegID:   d.RegistrationID,
			EIdent:   d.IdentityKey.Public[:],
			ESKeyID:  d.SignedPreKey.ID,
			ESKeyVal: d.SignedPreKey.Key.Public[:],
			ESKeySig: d.SignedPreKey.Signature[:],
			BuildHash: core.BuildHashFor(AppVersion),
			DeviceProps: core.DeviceProps{
				OS:              "waconnect",
				Version:         core.AppVersion{Primary: 0, Secondary: 1, Tertiary: 0},
				PlatformType:    0,
				RequireFullSync: false,
			},
		},
	})
}

// sendFrame frames and writes a pre-serialized handshake message
// (unencrypted — the Noise socket doesn't exist yet during handshake;
// spec.md §3: "handshake messages ... passed through the frame
// transport directly").
func (s *Session) sendFrame(ctx context.Context, payload []byte) error {
	frame, err := s.frame.MakeFrame(payload)
	if err != nil {
		return err
	}
	if err := s.carrier.Write(ctx, frame); err != nil {
		return &core.CarrierError{Err: err}
	}
	return nil
}

// readFrame blocks until the frame transport has reassembled one
// complete payload from the carrier, handling arbitrary chunking
// (spec.md §4.1).
func (s *Session) readFrame(ctx context.Context) ([]byte, error) {
	for {
		chunk, err := s.carrier.Read(ctx)
		if err != nil {
			return nil, &core.CarrierError{Err: err}
		}
		frames := s.frame.Feed(chunk)
		if len(frames) > 0 {
			return frames[0], nil
		}
	}
}

// inboundLoop owns the read counter exclusively (spec.md §5): it reads
// frames, decrypts them, decodes a node tree, and dispatches by tag.
func (s *Session) inboundLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.fail(ctx.Err())
			return
		default:
		}

		ciphertext, err := s.readFrame(ctx)
		if err != nil {
			s.fail(err)
			return
		}
		s.lastInbound.set(time.Now())

		plaintext, err := s.noise.Decrypt(ciphertext)
		if err != nil {
			s.fail(err)
			return
		}

		node, err := core.DecodeNode(plaintext)
		if err != nil {
			s.logger.Warnw("dropping undecodable inbound frame", "error", err)
			continue
		}

		s.logger.Debugw("received node", "xml", node.DebugXML())
		s.dispatch(ctx, node)
	}
}

func (s *Session) dispatch(ctx context.Context, node *core.Node) {
	switch node.Tag {
	case "iq":
		s.handlePairing(ctx, node)
	default:
		s.logger.Infow("node not handled", "tag", node.Tag)
	}
}

// keepAliveLoop sends a ping iq at a random [20s,30s] interval and
// closes the session if no inbound frame has arrived in 180s
// (spec.md §5).
func (s *Session) keepAliveLoop(ctx context.Context) {
	for {
		interval, err := randomDuration(keepAliveMinInterval, keepAliveMaxInterval)
		if err != nil {
			interval = keepAliveMinInterval
		}

		select {
		case <-ctx.Done():
			return
		case <-s.closed:
			return
		case <-time.After(interval):
		}

		if time.Since(s.lastInbound.get()) > keepAliveDeadLine {
			s.fail(fmt.Errorf("no inbound frame for over %s, connection presumed dead", keepAliveDeadLine))
			return
		}

		if _, err := s.SendIQ(ctx, Query{Namespace: "w:p", Type: "get", Content: core.NewNode("ping")}); err != nil {
			s.logger.Warnw("keepalive ping failed", "error", err)
		}
	}
}

func randomDuration(min, max time.Duration) (time.Duration, error) {
	span := int64(max - min)
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return 0, err
	}
	return min + time.Duration(n.Int64()), nil
}

// Query describes an outbound iq request (spec.md §4.6).
type Query struct {
	Namespace string
	Type      string
	To        *core.JID
	Target    *core.JID
	Content   *core.Node
}

// SendIQ builds and sends an iq node with a fresh monotonic request id
// of the form "{2 random bytes as a.b-}{counter}" (spec.md §4.6). It
// does not wait for a reply: the driver is request/notification, not
// RPC (spec.md §5).
func (s *Session) SendIQ(ctx context.Context, q Query) (requestID string, err error) {
	requestID = s.nextRequestID()

	attrs := map[string]core.Value{
		"id":    core.StringValue(requestID),
		"xmlns": core.StringValue(q.Namespace),
		"type":  core.StringValue(q.Type),
	}
	if q.To != nil {
		attrs["to"] = core.JIDValue(*q.To)
	}
	if q.Target != nil {
		attrs["target"] = core.JIDValue(*q.Target)
	}

	node := &core.Node{Tag: "iq", Attrs: attrs}
	if q.Content != nil {
		content := core.NodeValue(q.Content)
		node.Content = &content
	}

	if err := s.SendNode(ctx, node); err != nil {
		return "", err
	}
	return requestID, nil
}

func (s *Session) nextRequestID() string {
	s.requestsMu.Lock()
	defer s.requestsMu.Unlock()
	id := fmt.Sprintf("%s%d", s.uniqueID, s.idCounter)
	s.idCounter++
	return id
}

// SendNode serializes, AEAD-encrypts, frames, and sends a node. Callers
// wanting to observe interleave-free outbound ordering should route
// all sends through SendIQ/SendNode rather than the frame transport
// directly (spec.md §5: outbound sends are serialized end-to-end).
func (s *Session) SendNode(ctx context.Context, node *core.Node) error {
	s.outMu.Lock()
	defer s.outMu.Unlock()

	if s.State() == StateClosed {
		return &core.ProtocolError{Reason: "session is closed"}
	}

	s.logger.Debugw("sending node", "xml", node.DebugXML())
	plaintext := core.EncodeNode(node)

	ciphertext, err := s.noise.Encrypt(plaintext)
	if err != nil {
		return err
	}
	return s.sendFrame(ctx, ciphertext)
}

// fail transitions the session to Closed and invokes onClose, once.
func (s *Session) fail(err error) {
	s.closeOnce.Do(func() {
		s.setState(StateClosed)
		close(s.closed)
		_ = s.carrier.Close()
		if s.onClose != nil {
			s.onClose(err)
		}
	})
}

// Close terminates the session cleanly; any in-flight SendIQ call
// subsequently fails with a closed-session ProtocolError.
func (s *Session) Close() error {
	s.fail(nil)
	return nil
}
