package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/waconnect/wacore/internal/core"
	"github.com/waconnect/wacore/internal/session"
)

// Session status constants
type SessionStatus string

const (
	StatusInitializing SessionStatus = "INITIALIZING"
	StatusConnecting   SessionStatus = "CONNECTING"
	StatusQRReady       SessionStatus = "QR_READY"
	StatusReady         SessionStatus = "READY"
	StatusDisconnected  SessionStatus = "DISCONNECTED"
)

// Common errors
var (
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotConnected    = errors.New("not connected")
)

// WAClient hosts one WhatsApp Web session: it owns the device key
// material, persists it across restarts, and drives a
// session.Session over a dialed carrier.
type WAClient struct {
	ID               string
	status           SessionStatus
	phoneNumber      string
	qrCode           string
	qrCodeBase64     string
	connectedAt      *time.Time
	lastActivityAt   time.Time
	messagesSent     int
	messagesReceived int

	mu      sync.RWMutex
	logger  *zap.SugaredLogger
	dataDir string

	device *core.Device
	sess   *session.Session
	qrGen  *core.QRGenerator

	cancel context.CancelFunc

	onQR      func(string)
	onReady   func()
	onMessage func(Message)

	// Lifecycle event sinks wired by SessionManager for webhook fan-out.
	onQREvent    func(qr string)
	onReadyEvent func(phone string)
	onCloseEvent func(errMsg string)
}

// Message represents a WhatsApp message delivered to the host
// application.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	FromName  string    `json:"fromName"`
	To        string    `json:"to"`
	Text      string    `json:"text"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	IsFromMe  bool      `json:"isFromMe"`
}

// NewWAClient creates a new WhatsApp client session, loading
// persisted device key material if present or generating it fresh.
func NewWAClient(sessionID string, logger *zap.SugaredLogger, dataDir string) *WAClient {
	return &WAClient{
		ID:             sessionID,
		status:         StatusInitializing,
		lastActivityAt: time.Now(),
		logger:         logger,
		dataDir:        dataDir,
		qrGen:          core.NewQRGenerator(),
	}
}

// Connect dials the carrier and runs the session handshake in the
// background, surfacing QR codes and ready/pair-success transitions
// through the registered callbacks.
func (c *WAClient) Connect() error {
	c.mu.Lock()
	c.status = StatusConnecting
	c.mu.Unlock()

	c.logger.Infof("Connecting session %s...", c.ID)

	device, err := loadOrCreateDevice(c.dataDir, c.ID)
	if err != nil {
		c.mu.Lock()
		c.status = StatusDisconnected
		c.mu.Unlock()
		return err
	}
	c.device = device

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	carrier, err := session.Dial(ctx)
	if err != nil {
		cancel()
		c.mu.Lock()
		c.status = StatusDisconnected
		c.mu.Unlock()
		return err
	}

	sess, err := session.New(carrier, device, c.logger)
	if err != nil {
		cancel()
		return err
	}
	c.sess = sess

	sess.OnQR(func(qrData string) {
		c.mu.Lock()
		c.status = StatusQRReady
		c.qrCode = qrData
		if b64, err := c.qrGen.GenerateBase64(qrData); err == nil {
			c.qrCodeBase64 = b64
		}
		c.lastActivityAt = time.Now()
		c.mu.Unlock()

		c.logger.Infof("QR code ready for session %s", c.ID)
		if c.onQR != nil {
			c.onQR(qrData)
		}
		if c.onQREvent != nil {
			c.onQREvent(qrData)
		}
	})

	sess.OnPairSuccess(func(phone string) {
		now := time.Now()
		c.mu.Lock()
		c.status = StatusReady
		c.phoneNumber = phone
		c.connectedAt = &now
		c.lastActivityAt = now
		c.mu.Unlock()

		c.logger.Infof("Session %s paired with %s", c.ID, phone)
		if err := saveDevice(c.dataDir, c.ID, device); err != nil {
			c.logger.Warnf("failed to persist device for %s: %v", c.ID, err)
		}
		if c.onReady != nil {
			c.onReady()
		}
		if c.onReadyEvent != nil {
			c.onReadyEvent(phone)
		}
	})

	sess.OnClose(func(err error) {
		c.mu.Lock()
		c.status = StatusDisconnected
		c.mu.Unlock()

		errMsg := ""
		if err != nil {
			errMsg = err.Error()
			c.logger.Errorf("session %s closed: %v", c.ID, err)
		} else {
			c.logger.Infof("session %s closed", c.ID)
		}
		if c.onCloseEvent != nil {
			c.onCloseEvent(errMsg)
		}
	})

	go func() {
		if err := sess.Connect(ctx); err != nil {
			c.logger.Errorf("handshake failed for %s: %v", c.ID, err)
			c.mu.Lock()
			c.status = StatusDisconnected
			c.mu.Unlock()
		}
	}()

	return nil
}

// Disconnect closes the underlying session.
func (c *WAClient) Disconnect() {
	c.mu.Lock()
	sess := c.sess
	cancel := c.cancel
	c.status = StatusDisconnected
	c.qrCode = ""
	c.mu.Unlock()

	if sess != nil {
		_ = sess.Close()
	}
	if cancel != nil {
		cancel()
	}
	c.logger.Infof("session %s disconnected", c.ID)
}

// GetStatus returns current session status
func (c *WAClient) GetStatus() SessionStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// GetQRCode returns the current QR code's raw pairing payload.
func (c *WAClient) GetQRCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.qrCode
}

// GetQRCodeBase64 returns the current QR code rendered as a base64 PNG
// data URI, or "" if no QR code is pending.
func (c *WAClient) GetQRCodeBase64() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.qrCodeBase64
}

// GetQRCodePNG renders the current QR code as raw PNG bytes.
func (c *WAClient) GetQRCodePNG() ([]byte, error) {
	c.mu.RLock()
	qrCode := c.qrCode
	c.mu.RUnlock()
	if qrCode == "" {
		return nil, ErrNotConnected
	}
	return c.qrGen.GeneratePNG(qrCode)
}

// GetQRCodeSVG renders the current QR code as an SVG document.
func (c *WAClient) GetQRCodeSVG() (string, error) {
	c.mu.RLock()
	qrCode := c.qrCode
	c.mu.RUnlock()
	if qrCode == "" {
		return "", ErrNotConnected
	}
	return c.qrGen.GenerateSVG(qrCode)
}

// GetPhoneNumber returns the connected phone number
func (c *WAClient) GetPhoneNumber() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phoneNumber
}

// GetSession returns session info
func (c *WAClient) GetSession() SessionInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return SessionInfo{
		ID:               c.ID,
		Status:           c.status,
		PhoneNumber:      c.phoneNumber,
		ConnectedAt:      c.connectedAt,
		LastActivityAt:   c.lastActivityAt,
		MessagesSent:     c.messagesSent,
		MessagesReceived: c.messagesReceived,
	}
}

// SendText sends a plaintext note over the authenticated session.
// There is no Signal-layer payload encryption here — that's an
// explicit non-goal of the underlying wire protocol — so this can't
// produce a message a real WhatsApp client would render; it exists to
// exercise SendIQ end to end for sessions that don't need interop with
// the actual network (e.g. protocol conformance testing).
func (c *WAClient) SendText(to, text string) (*MessageResult, error) {
	c.mu.Lock()
	sess := c.sess
	ready := c.status == StatusReady
	c.mu.Unlock()

	if !ready || sess == nil {
		return nil, ErrNotConnected
	}

	toJID := core.NewJID(to, core.ServerDefault)
	content := core.NewNode("conversation")
	textVal := core.StringValue(text)
	content.Content = &textVal

	requestID, err := sess.SendIQ(context.Background(), session.Query{
		Namespace: "w:m",
		Type:      "set",
		To:        &toJID,
		Content:   content,
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.messagesSent++
	c.lastActivityAt = time.Now()
	c.mu.Unlock()

	return &MessageResult{
		MessageID: requestID,
		Timestamp: time.Now(),
	}, nil
}

// SessionInfo holds session information
type SessionInfo struct {
	ID               string        `json:"id"`
	Status           SessionStatus `json:"status"`
	PhoneNumber      string        `json:"phoneNumber,omitempty"`
	ConnectedAt      *time.Time    `json:"connectedAt,omitempty"`
	LastActivityAt   time.Time     `json:"lastActivityAt"`
	MessagesSent     int           `json:"messagesSent"`
	MessagesReceived int           `json:"messagesReceived"`
}

// MessageResult holds the result of sending a message
type MessageResult struct {
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}
