// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// maxBytesToPrintAsHex caps inline hex dumps in DebugXML; larger byte
// payloads collapse to a byte-count comment instead of flooding logs.
const maxBytesToPrintAsHex = 128

// DebugXML renders n as a single-line, non-canonical XML-ish string for
// logging. It is not a wire format: attribute quoting is unescaped and
// byte content that isn't printable ASCII is hex-dumped.
func (n *Node) DebugXML() string {
	if n == nil {
		return ""
	}
	attrStr := n.attributeString()
	content := n.contentStrings()

	if len(content) == 0 {
		return fmt.Sprintf("<%s%s />", n.Tag, attrStr)
	}
	return fmt.Sprintf("<%s%s>%s</%s>", n.Tag, attrStr, strings.Join(content, ""), n.Tag)
}

func (n *Node) attributeString() string {
	if len(n.Attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sortStrings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, ` %s="%s"`, k, valueAsString(n.Attrs[k]))
	}
	return b.String()
}

func valueAsString(v Value) string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindJID:
		return v.JID.String()
	case KindBytes:
		return formatBytesInline(v.Bytes)
	default:
		return ""
	}
}

func (n *Node) contentStrings() []string {
	if n.Content == nil {
		return nil
	}
	switch n.Content.Kind {
	case KindList:
		out := make([]string, 0, len(n.Content.List))
		for _, child := range n.Content.List {
			out = append(out, child.DebugXML())
		}
		return out
	case KindNode:
		return []string{n.Content.Node.DebugXML()}
	case KindBytes:
		return []string{formatBytesBlock(n.Content.Bytes)}
	case KindString:
		return []string{strings.ReplaceAll(n.Content.Str, "\n", "\\n")}
	default:
		return nil
	}
}

func formatBytesInline(b []byte) string {
	if isPrintableASCII(b) {
		return string(b)
	}
	return hex.EncodeToString(b)
}

func formatBytesBlock(b []byte) string {
	if isPrintableASCII(b) {
		return strings.ReplaceAll(string(b), "\n", "\\n")
	}
	if len(b) > maxBytesToPrintAsHex {
		return fmt.Sprintf("<!-- %d bytes -->", len(b))
	}
	return hex.EncodeToString(b)
}

func isPrintableASCII(b []byte) bool {
	for _, c := range b {
		if c > unicode.MaxASCII || (!unicode.IsGraphic(rune(c)) && !unicode.IsSpace(rune(c))) {
			return false
		}
	}
	return true
}
