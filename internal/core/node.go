// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import "fmt"

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindBytes
	KindJID
	KindList
	KindNode
)

// Value is the tagged union carried by node attributes and content
// (spec.md §3). Exactly one field is meaningful, selected by Kind.
type Value struct {
	Kind ValueKind

	Str   string
	Bytes []byte
	JID   JID
	List  []*Node
	Node  *Node
}

// StringValue wraps a plain string.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// BytesValue wraps a raw byte payload.
func BytesValue(b []byte) Value { return Value{Kind: KindBytes, Bytes: b} }

// JIDValue wraps a JID.
func JIDValue(j JID) Value { return Value{Kind: KindJID, JID: j} }

// ListValue wraps a list of child nodes.
func ListValue(nodes []*Node) Value { return Value{Kind: KindList, List: nodes} }

// NodeValue wraps a singleton nested node.
func NodeValue(n *Node) Value { return Value{Kind: KindNode, Node: n} }

// IsNullOrEmpty reports whether v should be skipped when encoding node
// attributes (spec.md §4.5.3: "empty-string and null attribute values
// MUST be skipped on the wire").
func (v Value) IsNullOrEmpty() bool {
	return v.Kind == KindNull || (v.Kind == KindString && v.Str == "")
}

// AsString returns v's string form, panicking-free: only KindString and
// KindJID (as "user@server") degrade to a string; anything else is "".
func (v Value) AsString() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindJID:
		return v.JID.String()
	default:
		return ""
	}
}

// JID identifies a WhatsApp entity: optional user, optional server,
// optional 8-bit raw agent, optional 16-bit device, optional 16-bit
// integrator (spec.md §3).
type JID struct {
	User       string
	Server     string
	RawAgent   uint8
	Device     uint16
	Integrator uint16

	HasRawAgent   bool
	HasDevice     bool
	HasIntegrator bool
}

// Well-known JID servers, each routed to a distinct wire form
// (spec.md §3, §4.5.5).
const (
	ServerDefault   = "s.whatsapp.net"
	ServerLID       = "lid"
	ServerHosted    = "hosted"
	ServerMessenger = "msgr"
	ServerInterop   = "interop"
	ServerGroup     = "g.us"
)

// NewJID builds a plain user@server JID.
func NewJID(user, server string) JID {
	return JID{User: user, Server: server}
}

// String renders the textual form "user@server".
func (j JID) String() string {
	if j.User == "" {
		return j.Server
	}
	return fmt.Sprintf("%s@%s", j.User, j.Server)
}

// Node is a tag, a set of uniquely-named attributes, and optional
// content (spec.md §3).
type Node struct {
	Tag     string
	Attrs   map[string]Value
	Content *Value
}

// NewNode constructs a node with no attributes or content.
func NewNode(tag string) *Node {
	return &Node{Tag: tag, Attrs: make(map[string]Value)}
}

// AttrString returns the string form of a named attribute, or "" if
// absent.
func (n *Node) AttrString(key string) string {
	if n == nil {
		return ""
	}
	v, ok := n.Attrs[key]
	if !ok {
		return ""
	}
	return v.AsString()
}

// GetChildren returns n.Content's node list, or nil if content is
// absent or of a different kind.
func (n *Node) GetChildren() []*Node {
	if n == nil || n.Content == nil || n.Content.Kind != KindList {
		return nil
	}
	return n.Content.List
}

// GetChildByTag returns the first child in n's content list with the
// given tag, or nil.
func (n *Node) GetChildByTag(tag string) *Node {
	for _, c := range n.GetChildren() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}
