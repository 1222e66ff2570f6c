// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import (
	"bytes"
	"encoding/binary"
)

// EncodeNode serializes a node tree to the binary XML wire format
// (spec.md §4.5.3). It does not apply the flags/zlib header; callers
// that need the on-wire framing byte use EncodeNodeFramed.
func EncodeNode(n *Node) []byte {
	buf := new(bytes.Buffer)
	e := &encoder{buf: buf}
	e.writeNode(n)
	return buf.Bytes()
}

type encoder struct {
	buf *bytes.Buffer
}

func (e *encoder) writeNode(n *Node) {
	attrCount := e.countAttrs(n.Attrs)
	hasContent := n.Content != nil && n.Content.Kind != KindNull

	arity := 2*attrCount + 1
	if hasContent {
		arity++
	}

	e.writeListStart(arity)
	e.writeString(n.Tag)
	e.writeAttrs(n.Attrs)

	if hasContent {
		e.writeValue(*n.Content)
	}
}

func (e *encoder) countAttrs(attrs map[string]Value) int {
	n := 0
	for _, v := range attrs {
		if !v.IsNullOrEmpty() {
			n++
		}
	}
	return n
}

// writeAttrs emits attributes sorted by key so the wire output is
// deterministic (spec.md §3: "emission order deterministic via
// lexicographic sort on the wire output for stability").
func (e *encoder) writeAttrs(attrs map[string]Value) {
	keys := make([]string, 0, len(attrs))
	for k, v := range attrs {
		if !v.IsNullOrEmpty() {
			keys = append(keys, k)
		}
	}
	sortStrings(keys)

	for _, k := range keys {
		e.writeString(k)
		e.writeValue(attrs[k])
	}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func (e *encoder) writeValue(v Value) {
	switch v.Kind {
	case KindString:
		e.writeString(v.Str)
	case KindBytes:
		e.writeBytes(v.Bytes)
	case KindJID:
		e.writeJID(v.JID)
	case KindList:
		e.writeListStart(len(v.List))
		for _, child := range v.List {
			e.writeNode(child)
		}
	case KindNode:
		e.writeNode(v.Node)
	case KindNull:
		e.buf.WriteByte(listEmpty)
	}
}

func (e *encoder) writeBytes(data []byte) {
	e.writeByteLength(len(data))
	e.buf.Write(data)
}

func (e *encoder) writeByteLength(length int) {
	switch {
	case length < 256:
		e.buf.WriteByte(binary8)
		e.buf.WriteByte(byte(length))
	case length < (1 << 20):
		e.buf.WriteByte(binary20)
		e.buf.WriteByte(byte(length>>16) & 0x0F)
		e.buf.WriteByte(byte(length >> 8))
		e.buf.WriteByte(byte(length))
	default:
		e.buf.WriteByte(binary32)
		var lenBytes [4]byte
		binary.BigEndian.PutUint32(lenBytes[:], uint32(length))
		e.buf.Write(lenBytes[:])
	}
}

// writeJID encodes the JID variant selected by its server, per
// spec.md §4.5.5.
func (e *encoder) writeJID(j JID) {
	switch {
	case (j.Server == ServerDefault && j.Device > 0) || j.Server == ServerLID || j.Server == ServerHosted:
		e.buf.WriteByte(adJID)
		e.buf.WriteByte(j.RawAgent)
		e.buf.WriteByte(byte(j.Device))
		e.writeString(j.User)

	case j.Server == ServerMessenger:
		e.buf.WriteByte(fbJID)
		e.writeString(j.User)
		e.writeUint16(j.Device)
		e.writeString(j.Server)

	case j.Server == ServerInterop:
		e.buf.WriteByte(interopJID)
		e.writeString(j.User)
		e.writeUint16(j.Device)
		e.writeUint16(j.Integrator)
		e.writeString(j.Server)

	default:
		e.buf.WriteByte(jidPair)
		if j.User == "" {
			e.buf.WriteByte(listEmpty)
		} else {
			e.writeString(j.User)
		}
		e.writeString(j.Server)
	}
}

func (e *encoder) writeUint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

// writeString picks, in order, the single-byte token, the double-byte
// token, the nibble pack, the hex pack, or a plain length-prefixed
// binary form (spec.md §4.5.4).
func (e *encoder) writeString(s string) {
	if idx, ok := singleByteIndex[s]; ok {
		e.buf.WriteByte(idx)
		return
	}
	if loc, ok := doubleByteIndex[s]; ok {
		e.buf.WriteByte(dictionaryRowToken(loc.row))
		e.buf.WriteByte(loc.index)
		return
	}
	if isNibbleAlphabet(s) {
		e.writePacked(s, nibble8)
		return
	}
	if isHexAlphabet(s) {
		e.writePacked(s, hex8)
		return
	}
	e.writeByteLength(len(s))
	e.buf.WriteString(s)
}

func isNibbleAlphabet(s string) bool {
	if len(s) > 127 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9') && c != '-' && c != '.' {
			return false
		}
	}
	return true
}

func isHexAlphabet(s string) bool {
	if len(s) > 127 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9') && !(c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

// writePacked emits the NIBBLE_8/HEX_8 form: token byte, length byte
// (low 7 bits = ceil(len/2), top bit = len is odd), then nibble pairs
// (spec.md §4.5.4).
func (e *encoder) writePacked(s string, token byte) {
	e.buf.WriteByte(token)

	roundedLen := byte((len(s) + 1) / 2)
	if len(s)%2 != 0 {
		roundedLen |= 0x80
	}
	e.buf.WriteByte(roundedLen)

	pack := packNibble
	if token == hex8 {
		pack = packHex
	}

	pairs := len(s) / 2
	for i := 0; i < pairs; i++ {
		hi := pack(s[2*i])
		lo := pack(s[2*i+1])
		e.buf.WriteByte(hi<<4 | lo)
	}
	if len(s)%2 != 0 {
		hi := pack(s[len(s)-1])
		e.buf.WriteByte(hi<<4 | pack(0))
	}
}

func packNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c == '-':
		return 10
	case c == '.':
		return 11
	case c == 0:
		return 15
	default:
		panic("packNibble: invalid character")
	}
}

func packHex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return 10 + (c - 'A')
	case c == 0:
		return 15
	default:
		panic("packHex: invalid character")
	}
}

// writeListStart emits the list-size token for a list/tuple arity
// (spec.md §4.5.1, §4.5.3).
func (e *encoder) writeListStart(size int) {
	switch {
	case size == 0:
		e.buf.WriteByte(listEmpty)
	case size < 256:
		e.buf.WriteByte(list8)
		e.buf.WriteByte(byte(int8(size)))
	default:
		e.buf.WriteByte(list16)
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(size))
		e.buf.Write(b[:])
	}
}
