// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import "crypto/md5"

// Field numbers for the registration payload carried as the encrypted
// ClientFinish payload (spec.md §6). The upstream wire schema is not
// available in source form here, so these numbers are an internal
// convention: self-consistent across EncodeClientPayload and nothing
// else on the wire depends on matching a third party's layout.
const (
	fieldUserAgent        = 3
	fieldWebInfo          = 6
	fieldDevicePairing    = 15
	fieldConnectType      = 16
	fieldConnectReason    = 17
	fieldPassive          = 18
	fieldPull             = 19

	fieldUAPlatform    = 1
	fieldUAAppVersion  = 2
	fieldUAMcc         = 3
	fieldUAMnc         = 4
	fieldUAOSVersion   = 5
	fieldUAManufact    = 6
	fieldUADevice      = 7
	fieldUAOSBuild     = 8
	fieldUALangISO     = 9
	fieldUACountryISO  = 10

	fieldAppVerPrimary   = 1
	fieldAppVerSecondary = 2
	fieldAppVerTertiary  = 3

	fieldWebSubPlatform = 1

	fieldDPERegID     = 1
	fieldDPEKeyType   = 2
	fieldDPEIdent     = 3
	fieldDPESKeyID    = 4
	fieldDPESKeyVal   = 5
	fieldDPESKeySig   = 6
	fieldDPBuildHash  = 7
	fieldDPDeviceProp = 8

	fieldDevPropOS              = 1
	fieldDevPropVersion         = 2
	fieldDevPropPlatformType    = 3
	fieldDevPropRequireFullSync = 4
)

// WebPlatform identifies the UserAgent.platform enum value this client
// advertises: the web browser client (spec.md §6).
const WebPlatform = 14

// AppVersion is the three-component version advertised in the
// UserAgent payload.
type AppVersion struct {
	Primary, Secondary, Tertiary uint32
}

// UserAgent describes the client presented during registration
// (spec.md §6: "platform=Web, app_version=2.3000.1022419966, ...").
type UserAgent struct {
	Platform                     uint32
	AppVersion                   AppVersion
	MCC, MNC                     string
	OSVersion                    string
	Manufacturer                 string
	Device                       string
	OSBuildNumber                string
	LocaleLanguageISO6391        string
	LocaleCountryISO31661Alpha2  string
}

// WebInfo carries the sub-platform the web client runs under.
type WebInfo struct {
	WebSubPlatform uint32
}

// DeviceProps describes the pairing device for registration.
type DeviceProps struct {
	OS              string
	Version         AppVersion
	PlatformType    uint32
	RequireFullSync bool
}

// DevicePairingRegistrationData carries the key material a brand-new
// device presents when registering for the first time (spec.md §6).
type DevicePairingRegistrationData struct {
	ERegID      uint32
	EIdent      []byte
	ESKeyID     uint32
	ESKeyVal    []byte
	ESKeySig    []byte
	BuildHash   []byte
	DeviceProps DeviceProps
}

// ClientPayload is the registration message sent as the encrypted
// ClientFinish payload (spec.md §6).
type ClientPayload struct {
	UserAgent      UserAgent
	WebInfo        WebInfo
	ConnectType    uint32
	ConnectReason  uint32
	Passive        bool
	Pull           bool
	DevicePairing  *DevicePairingRegistrationData
}

// BuildHashFor hashes an app-version string (e.g. "2.3000.1022419966")
// with MD5, matching spec.md §6's build_hash derivation.
func BuildHashFor(appVersion string) []byte {
	sum := md5.Sum([]byte(appVersion))
	return sum[:]
}

func encodeAppVersion(v AppVersion) []byte {
	var out []byte
	out = append(out, pbEncodeVarint(fieldAppVerPrimary, uint64(v.Primary))...)
	out = append(out, pbEncodeVarint(fieldAppVerSecondary, uint64(v.Secondary))...)
	out = append(out, pbEncodeVarint(fieldAppVerTertiary, uint64(v.Tertiary))...)
	return out
}

func encodeUserAgent(ua UserAgent) []byte {
	var out []byte
	out = append(out, pbEncodeVarint(fieldUAPlatform, uint64(ua.Platform))...)
	out = append(out, pbEncodeBytes(fieldUAAppVersion, encodeAppVersion(ua.AppVersion))...)
	out = append(out, pbEncodeString(fieldUAMcc, ua.MCC)...)
	out = append(out, pbEncodeString(fieldUAMnc, ua.MNC)...)
	out = append(out, pbEncodeString(fieldUAOSVersion, ua.OSVersion)...)
	out = append(out, pbEncodeString(fieldUAManufact, ua.Manufacturer)...)
	out = append(out, pbEncodeString(fieldUADevice, ua.Device)...)
	out = append(out, pbEncodeString(fieldUAOSBuild, ua.OSBuildNumber)...)
	out = append(out, pbEncodeString(fieldUALangISO, ua.LocaleLanguageISO6391)...)
	out = append(out, pbEncodeString(fieldUACountryISO, ua.LocaleCountryISO31661Alpha2)...)
	return out
}

func encodeWebInfo(wi WebInfo) []byte {
	return pbEncodeVarint(fieldWebSubPlatform, uint64(wi.WebSubPlatform))
}

func encodeDeviceProps(dp DeviceProps) []byte {
	var out []byte
	out = append(out, pbEncodeString(fieldDevPropOS, dp.OS)...)
	out = append(out, pbEncodeBytes(fieldDevPropVersion, encodeAppVersion(dp.Version))...)
	out = append(out, pbEncodeVarint(fieldDevPropPlatformType, uint64(dp.PlatformType))...)
	out = append(out, pbEncodeBool(fieldDevPropRequireFullSync, dp.RequireFullSync)...)
	return out
}

func encodeDevicePairingData(d DevicePairingRegistrationData) []byte {
	var regID [4]byte
	putUint32BE(regID[:], d.ERegID)

	var skeyID [3]byte
	putUint24(skeyID[:], int(d.ESKeyID&0x00FFFFFF))

	var out []byte
	out = append(out, pbEncodeBytes(fieldDPERegID, regID[:])...)
	out = append(out, pbEncodeBytes(fieldDPEKeyType, []byte{djbKeyType})...)
	out = append(out, pbEncodeBytes(fieldDPEIdent, d.EIdent)...)
	out = append(out, pbEncodeBytes(fieldDPESKeyID, skeyID[:])...)
	out = append(out, pbEncodeBytes(fieldDPESKeyVal, d.ESKeyVal)...)
	out = append(out, pbEncodeBytes(fieldDPESKeySig, d.ESKeySig)...)
	out = append(out, pbEncodeBytes(fieldDPBuildHash, d.BuildHash)...)
	out = append(out, pbEncodeBytes(fieldDPDeviceProp, encodeDeviceProps(d.DeviceProps))...)
	return out
}

// EncodeClientPayload serializes the registration payload that becomes
// the encrypted body of ClientFinish.
func EncodeClientPayload(p ClientPayload) []byte {
	var out []byte
	out = append(out, pbEncodeBytes(fieldUserAgent, encodeUserAgent(p.UserAgent))...)
	out = append(out, pbEncodeBytes(fieldWebInfo, encodeWebInfo(p.WebInfo))...)
	out = append(out, pbEncodeVarint(fieldConnectType, uint64(p.ConnectType))...)
	out = append(out, pbEncodeVarint(fieldConnectReason, uint64(p.ConnectReason))...)
	out = append(out, pbEncodeBool(fieldPassive, p.Passive)...)
	out = append(out, pbEncodeBool(fieldPull, p.Pull)...)
	if p.DevicePairing != nil {
		out = append(out, pbEncodeBytes(fieldDevicePairing, encodeDevicePairingData(*p.DevicePairing))...)
	}
	return out
}

func pbEncodeVarint(fieldNum int, v uint64) []byte {
	tag := encodeTag(fieldNum, wireVarint)
	return append(tag, encodeVarint(v)...)
}

func pbEncodeBool(fieldNum int, v bool) []byte {
	if !v {
		return nil
	}
	return pbEncodeVarint(fieldNum, 1)
}

func pbEncodeString(fieldNum int, s string) []byte {
	if s == "" {
		return nil
	}
	return pbEncodeBytes(fieldNum, []byte(s))
}

func putUint32BE(dst []byte, v uint32) {
	dst[0] = byte(v >> 24)
	dst[1] = byte(v >> 16)
	dst[2] = byte(v >> 8)
	dst[3] = byte(v)
}
