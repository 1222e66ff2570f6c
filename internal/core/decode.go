// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
)

// DecodeNode parses a flags-prefixed binary XML buffer into a node tree
// (spec.md §4.5.2). If bit 1 of the flags byte is set, the remainder is
// zlib-decompressed before parsing.
func DecodeNode(data []byte) (*Node, error) {
	if len(data) < 1 {
		return nil, &DecodeError{Reason: "empty buffer"}
	}

	flags := data[0]
	body := data[1:]
	if flags&2 != 0 {
		unzipped, err := zlibInflate(body)
		if err != nil {
			return nil, &DecodeError{Reason: "zlib inflate: " + err.Error()}
		}
		body = unzipped
	}

	d := &decoder{r: bytes.NewReader(body)}
	return d.decodeNode()
}

func zlibInflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

type decoder struct {
	r *bytes.Reader
}

func (d *decoder) readByte() (byte, error) {
	return d.r.ReadByte()
}

// decodeNode implements spec.md §4.5.2.
func (d *decoder) decodeNode() (*Node, error) {
	tok, err := d.readByte()
	if err != nil {
		return nil, &DecodeError{Reason: "truncated buffer reading list token"}
	}

	n, err := d.readListSize(tok)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, newEmptyNodeError()
	}

	tag, err := d.readString()
	if err != nil {
		return nil, err
	}

	attrs, err := d.readAttrs((n - 1) / 2)
	if err != nil {
		return nil, err
	}

	node := &Node{Tag: tag, Attrs: attrs}
	if n%2 == 0 {
		v, err := d.readValue(false)
		if err != nil {
			return nil, err
		}
		node.Content = &v
	}
	return node, nil
}

func (d *decoder) readListSize(tok byte) (int, error) {
	switch tok {
	case listEmpty:
		return 0, nil
	case list8:
		b, err := d.readByte()
		if err != nil {
			return 0, &DecodeError{Reason: "truncated LIST_8 size"}
		}
		return int(int8(b)), nil
	case list16:
		var buf [2]byte
		if _, err := io.ReadFull(d.r, buf[:]); err != nil {
			return 0, &DecodeError{Reason: "truncated LIST_16 size"}
		}
		return int(int16(binary.BigEndian.Uint16(buf[:]))), nil
	default:
		return 0, &DecodeError{Reason: "invalid list token"}
	}
}

func (d *decoder) readAttrs(count int) (map[string]Value, error) {
	attrs := make(map[string]Value, count)
	for i := 0; i < count; i++ {
		key, err := d.readString()
		if err != nil {
			return nil, err
		}
		val, err := d.readValue(true)
		if err != nil {
			return nil, err
		}
		if key == "lid" && val.Kind == KindJID {
			val.JID.Server = ServerLID
		}
		attrs[key] = val
	}
	return attrs, nil
}

// readString reads a value and requires it to degrade to a string
// (used for tags and attribute keys).
func (d *decoder) readString() (string, error) {
	v, err := d.readValue(true)
	if err != nil {
		return "", err
	}
	switch v.Kind {
	case KindString:
		return v.Str, nil
	case KindNull:
		return "", nil
	default:
		return "", &DecodeError{Reason: "expected string, got a different value kind"}
	}
}

// readValue reads one tagged value off the wire. parseBytes controls
// whether BINARY_* payloads decode to a string (true, for attribute
// values/tags) or raw bytes (false, for node content).
func (d *decoder) readValue(parseBytes bool) (Value, error) {
	tok, err := d.readByte()
	if err != nil {
		return Value{}, &DecodeError{Reason: "truncated buffer reading value tag"}
	}

	switch tok {
	case listEmpty:
		return Value{Kind: KindNull}, nil

	case jidPair:
		return d.readJIDPair()
	case adJID:
		return d.readADJID()
	case fbJID:
		return d.readFBJID()
	case interopJID:
		return d.readInteropJID()

	case list8:
		b, err := d.readByte()
		if err != nil {
			return Value{}, &DecodeError{Reason: "truncated LIST_8 value size"}
		}
		return d.readList(int(b))
	case list16:
		var buf [2]byte
		if _, err := io.ReadFull(d.r, buf[:]); err != nil {
			return Value{}, &DecodeError{Reason: "truncated LIST_16 value size"}
		}
		return d.readList(int(binary.BigEndian.Uint16(buf[:])))

	case binary8:
		b, err := d.readByte()
		if err != nil {
			return Value{}, &DecodeError{Reason: "truncated BINARY_8 size"}
		}
		return d.readBinary(int(b), parseBytes)
	case binary20:
		size, err := d.readBinary20Length()
		if err != nil {
			return Value{}, err
		}
		return d.readBinary(size, parseBytes)
	case binary32:
		var buf [4]byte
		if _, err := io.ReadFull(d.r, buf[:]); err != nil {
			return Value{}, &DecodeError{Reason: "truncated BINARY_32 size"}
		}
		return d.readBinary(int(binary.BigEndian.Uint32(buf[:])), parseBytes)

	case nibble8, hex8:
		return d.readPacked(tok)

	default:
		return d.readFromTokenTable(tok)
	}
}

func (d *decoder) readBinary20Length() (int, error) {
	var buf [3]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, &DecodeError{Reason: "truncated BINARY_20 size"}
	}
	return (int(buf[0]&0x0F) << 16) | (int(buf[1]) << 8) | int(buf[2]), nil
}

func (d *decoder) readBinary(size int, parseBytes bool) (Value, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return Value{}, &DecodeError{Reason: "truncated binary payload"}
	}
	if parseBytes {
		return Value{Kind: KindString, Str: string(buf)}, nil
	}
	return Value{Kind: KindBytes, Bytes: buf}, nil
}

func (d *decoder) readList(size int) (Value, error) {
	nodes := make([]*Node, 0, size)
	for i := 0; i < size; i++ {
		n, err := d.decodeNode()
		if err != nil {
			return Value{}, err
		}
		nodes = append(nodes, n)
	}
	return Value{Kind: KindList, List: nodes}, nil
}

func (d *decoder) readJIDPair() (Value, error) {
	user, err := d.readString()
	if err != nil {
		return Value{}, err
	}
	server, err := d.readString()
	if err != nil {
		return Value{}, err
	}
	return JIDValue(NewJID(user, server)), nil
}

func (d *decoder) readADJID() (Value, error) {
	rawAgent, err := d.readByte()
	if err != nil {
		return Value{}, &DecodeError{Reason: "truncated AD_JID raw agent"}
	}
	device, err := d.readByte()
	if err != nil {
		return Value{}, &DecodeError{Reason: "truncated AD_JID device"}
	}
	user, err := d.readString()
	if err != nil {
		return Value{}, err
	}
	return JIDValue(JID{
		User:        user,
		Server:      ServerDefault,
		RawAgent:    rawAgent,
		Device:      uint16(device),
		HasRawAgent: true,
		HasDevice:   true,
	}), nil
}

func (d *decoder) readFBJID() (Value, error) {
	user, err := d.readString()
	if err != nil {
		return Value{}, err
	}
	device, err := d.readUint16()
	if err != nil {
		return Value{}, &DecodeError{Reason: "truncated FB_JID device"}
	}
	server, err := d.readString()
	if err != nil {
		return Value{}, err
	}
	return JIDValue(JID{User: user, Server: server, Device: device, HasDevice: true}), nil
}

func (d *decoder) readInteropJID() (Value, error) {
	user, err := d.readString()
	if err != nil {
		return Value{}, err
	}
	device, err := d.readUint16()
	if err != nil {
		return Value{}, &DecodeError{Reason: "truncated INTEROP_JID device"}
	}
	integrator, err := d.readUint16()
	if err != nil {
		return Value{}, &DecodeError{Reason: "truncated INTEROP_JID integrator"}
	}
	server, err := d.readString()
	if err != nil {
		return Value{}, err
	}
	return JIDValue(JID{
		User: user, Server: server,
		Device: device, Integrator: integrator,
		HasDevice: true, HasIntegrator: true,
	}), nil
}

func (d *decoder) readUint16() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

// readPacked decodes a NIBBLE_8/HEX_8 packed string (spec.md §4.5.4).
func (d *decoder) readPacked(tok byte) (Value, error) {
	startByte, err := d.readByte()
	if err != nil {
		return Value{}, &DecodeError{Reason: "truncated packed-string length"}
	}

	unpack := unpackNibble
	if tok == hex8 {
		unpack = unpackHex
	}

	count := int(startByte & 0x7F)
	data := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		b, err := d.readByte()
		if err != nil {
			return Value{}, &DecodeError{Reason: "truncated packed-string body"}
		}
		hi, err := unpack(b >> 4)
		if err != nil {
			return Value{}, err
		}
		lo, err := unpack(b & 0x0F)
		if err != nil {
			return Value{}, err
		}
		data = append(data, hi, lo)
	}

	if startByte&0x80 != 0 && len(data) > 0 {
		data = data[:len(data)-1]
	}
	return Value{Kind: KindString, Str: string(data)}, nil
}

func unpackNibble(v byte) (byte, error) {
	switch {
	case v <= 9:
		return '0' + v, nil
	case v == 10:
		return '-', nil
	case v == 11:
		return '.', nil
	case v == 15:
		return 0, nil
	default:
		return 0, &DecodeError{Reason: "invalid nibble value"}
	}
}

func unpackHex(v byte) (byte, error) {
	switch {
	case v <= 9:
		return '0' + v, nil
	case v >= 10 && v <= 15:
		return 'A' + (v - 10), nil
	default:
		return 0, &DecodeError{Reason: "invalid hex nibble value"}
	}
}

func (d *decoder) readFromTokenTable(tok byte) (Value, error) {
	if tok < dictionary0 || tok > dictionary3 {
		if int(tok) >= len(singleByteTokens) || singleByteTokens[tok] == "" {
			return Value{}, &DecodeError{Reason: "invalid single-byte token"}
		}
		return Value{Kind: KindString, Str: singleByteTokens[tok]}, nil
	}

	row := tok - dictionary0
	idx, err := d.readByte()
	if err != nil {
		return Value{}, &DecodeError{Reason: "truncated double-byte token index"}
	}
	tokens := doubleByteTokens[row]
	if int(idx) >= len(tokens) {
		return Value{}, &DecodeError{Reason: "double-byte token index out of range"}
	}
	return Value{Kind: KindString, Str: tokens[idx]}, nil
}
