// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package session

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/waconnect/wacore/internal/core"
)

// handlePairing implements the iq dispatch branch of spec.md §4.6:
// inspect the first child of an inbound iq, responding to pair-device
// with QR codes and to pair-success with the linked phone number.
func (s *Session) handlePairing(ctx context.Context, node *core.Node) {
	children := node.GetChildren()
	if len(children) == 0 {
		return
	}

	switch children[0].Tag {
	case "pair-device":
		s.handlePairDevice(ctx, node, children[0])
	case "pair-success":
		s.handlePairSuccess(children[0])
	default:
		s.logger.Infow("unhandled iq child", "tag", children[0].Tag)
	}
}

// handlePairDevice acknowledges the pair-device request immediately,
// then emits one QR payload per ref child (spec.md §4.6): the
// reference text joined with base64(noise_pub), base64(identity_pub),
// base64(adv_secret), and surfaces the first to the event sink.
func (s *Session) handlePairDevice(ctx context.Context, iqNode, pairDevice *core.Node) {
	ack := &core.Node{
		Tag: "iq",
		Attrs: map[string]core.Value{
			"to":   core.StringValue(iqNode.AttrString("from")),
			"id":   core.StringValue(iqNode.AttrString("id")),
			"type": core.StringValue("result"),
		},
	}
	if err := s.SendNode(ctx, ack); err != nil {
		s.logger.Warnw("failed to ack pair-device", "error", err)
		return
	}

	var codes []string
	for _, child := range pairDevice.GetChildren() {
		if child.Tag != "ref" || child.Content == nil || child.Content.Kind != core.KindBytes {
			continue
		}
		codes = append(codes, s.buildQRPayload(string(child.Content.Bytes)))
	}

	if len(codes) > 0 && s.onQR != nil {
		s.onQR(codes[0])
	}
}

// buildQRPayload renders the literal string the host application
// shows as a QR code (spec.md §6): "ref,base64(noise_pub),
// base64(identity_pub),base64(adv_secret)".
func (s *Session) buildQRPayload(ref string) string {
	noise := base64.StdEncoding.EncodeToString(s.device.NoiseKey.Public[:])
	identity := base64.StdEncoding.EncodeToString(s.device.IdentityKey.Public[:])
	adv := base64.StdEncoding.EncodeToString(s.device.AdvSecret[:])
	return strings.Join([]string{ref, noise, identity, adv}, ",")
}

// handlePairSuccess extracts the linked phone number from a
// pair-success node and notifies the host application. The reference
// client leaves this unimplemented ("next phase, out of scope"); since
// the pairing-success node is plaintext carried over the already
// XX-authenticated channel, reading its phone number here doesn't
// cross into Signal-layer message decryption, which is what the core's
// non-goals actually exclude.
func (s *Session) handlePairSuccess(pairSuccess *core.Node) {
	device := pairSuccess.GetChildByTag("device")
	if device == nil {
		s.logger.Warn("pair-success with no device child")
		return
	}

	jidAttr, ok := device.Attrs["jid"]
	if !ok || jidAttr.Kind != core.KindJID {
		s.logger.Warn("pair-success device child has no jid")
		return
	}

	phone := jidAttr.JID.User
	if s.onPairSuccess != nil {
		s.onPairSuccess(phone)
	}
}
