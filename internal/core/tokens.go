// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

// Fixed token table for the binary XML codec. Mirrors the teacher's
// internal/core/binary.go tagDictionary, restructured into the
// single-byte / double-byte / control-token layout the wire format
// actually uses (see spec.md §4.5.1).

const (
	listEmpty byte = 0x00

	// dictionaryRows dispatch to one of four double-byte rows.
	dictionary0 byte = 236
	dictionary1 byte = 237
	dictionary2 byte = 238
	dictionary3 byte = 239

	interopJID byte = 240
	fbJID      byte = 241
	adJID      byte = 242
	jidPair    byte = 243
	hex8       byte = 244
	binary8    byte = 245
	binary20   byte = 246
	binary32   byte = 247
	nibble8    byte = 248
	list8      byte = 249
	list16     byte = 250
)

// singleByteTokens is indexed directly by wire byte value. Index 0 is
// listEmpty and never resolves to a string; index 1 is reserved/unused.
// Entries populate from index 2 up to (but not including) dictionary0.
var singleByteTokens = buildSingleByteTokens()

func buildSingleByteTokens() []string {
	tags := []string{
		"account", "ack", "action", "active", "add", "after", "all", "allow", "and",
		"android", "announce", "archive", "audio", "available", "battery", "before",
		"biz", "block", "body", "broadcast", "business", "call", "call-creator",
		"call-id", "cancel", "caption", "category", "chat", "child", "clear", "code",
		"composing", "config", "contact", "contacts", "count", "create", "creation",
		"creator", "decrypt", "default", "delete", "demote", "description", "device",
		"devices", "digest", "disappearing", "document", "done", "download", "duration",
		"edit", "elapsed", "enc", "encoding", "encrypt", "end", "ephemeral", "error",
		"event", "exit", "exposure", "failure", "false", "fan_out", "features", "file",
		"filehash", "filename", "format", "from", "full", "g.us", "get", "gif", "group",
		"groups", "hash", "height", "host", "id", "image", "in", "inactive", "index",
		"info", "interactive", "invite", "ios", "iq", "is", "item", "items", "jid",
		"keep", "key", "keyindex", "keyvalue", "keys", "kind", "large", "last", "leave",
		"limit", "linked", "list", "live", "location", "locked", "md", "media",
		"media_type", "member", "mentioned_jid", "merry", "message", "messages", "meta",
		"mimetype", "mirror", "mms", "modify", "msg", "mute", "name", "network", "new",
		"news", "newsletter", "none", "not", "notification", "notify", "number", "of",
		"offline", "opt", "order", "out", "owner", "page", "paid", "pairing",
		"participant", "participants", "passive", "paused", "phash", "phone", "photo",
		"picture", "pin", "pinned", "platform", "pn", "preview", "previous", "primary",
		"private", "promote", "props", "protocol", "psa", "push", "pushname", "query",
		"quit", "quote", "rate", "read", "reason", "receipt", "received", "recipient",
		"registration", "remove", "removed", "reply", "report", "request", "require",
		"reset", "resource", "result", "retry", "revoke", "s.whatsapp.net", "screen",
		"search", "sec", "secret", "seen", "selected", "self", "sender", "serial",
		"server", "session", "set", "settings", "sha256", "side", "sig", "silent",
		"size", "skmsg", "sky", "slow", "smax", "smbiz", "source", "sponsor", "srcjid",
		"starred", "start", "status", "sticker", "sticky", "storage", "store", "stop",
		"subject", "subscribe", "success", "sync", "system", "t", "tag", "taken",
		"target", "template", "terminate", "text", "thread", "thumbnail", "ticket",
		"time", "timestamp", "to", "token", "true", "type", "unavailable", "undefined",
		"unique", "unknown", "unlock", "unread", "until", "update", "upgrade", "url",
		"user", "users", "v", "value", "verified_name", "version", "video", "voip",
		"w:p", "wa", "web", "webp", "width", "write", "xmlns", "xmpp", "you", "years",
	}
	table := make([]string, int(dictionary0))
	for i, t := range tags {
		idx := i + 2
		if idx >= int(dictionary0) {
			break
		}
		table[idx] = t
	}
	return table
}

// doubleByteTokens holds the four DICTIONARY_0..3 rows. Together with
// singleByteTokens they give common strings a compact wire form without
// resorting to a length-prefixed encoding.
var doubleByteTokens = [4][]string{
	{ // DICTIONARY_0: message/stanza shapes
		"conversation", "extendedTextMessage", "imageMessage", "videoMessage",
		"audioMessage", "documentMessage", "stickerMessage", "contactMessage",
		"locationMessage", "liveLocationMessage", "groupInviteMessage",
		"templateMessage", "protocolMessage", "reactionMessage", "pollCreationMessage",
		"pollUpdateMessage", "buttonsMessage", "listMessage", "ephemeralMessage",
		"viewOnceMessage", "deviceSentMessage", "senderKeyDistributionMessage",
	},
	{ // DICTIONARY_1: receipt / notification kinds
		"delivery", "read-self", "played", "played-self", "retry", "server-error",
		"peer_msg", "inactive", "spam", "sender", "recipient", "media",
		"identity", "device_change", "account_sync", "encrypt", "picture",
		"contact_update",
	},
	{ // DICTIONARY_2: group / presence metadata
		"create", "subject", "participant", "promote", "demote", "remove", "add",
		"announcement", "restrict", "locked", "ephemeral", "not_ephemeral",
		"leave", "invite", "linked_group", "membership_approval_request",
	},
	{ // DICTIONARY_3: business / catalog metadata
		"verified_name", "business_hours", "business_hours_config", "catalog",
		"collection", "product", "order", "payment", "cart", "shop",
		"business_profile",
	},
}

// reverseLookup builds a string -> wire encoding lookup once at init time.
type singleByteLookup map[string]byte

type doubleByteLookup struct {
	row   byte
	index byte
}

var (
	singleByteIndex = func() singleByteLookup {
		m := make(singleByteLookup, len(singleByteTokens))
		for i, s := range singleByteTokens {
			if s == "" {
				continue
			}
			m[s] = byte(i)
		}
		return m
	}()

	doubleByteIndex = func() map[string]doubleByteLookup {
		m := make(map[string]doubleByteLookup)
		for row, tokens := range doubleByteTokens {
			for i, s := range tokens {
				m[s] = doubleByteLookup{row: byte(row), index: byte(i)}
			}
		}
		return m
	}()
)

func dictionaryRowToken(row byte) byte {
	return dictionary0 + row
}
