package client

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/waconnect/wacore/internal/core"
)

// deviceCreds is the on-disk form of a core.Device: fixed-size arrays
// become []byte so they marshal as base64 strings instead of JSON
// integer arrays (spec.md's core has no persistence; this lives in the
// client layer, grounded on the teacher's Credentials struct in
// internal/core/connection.go).
type deviceCreds struct {
	NoiseKeyPublic     []byte `json:"noiseKeyPublic"`
	NoiseKeyPrivate    []byte `json:"noiseKeyPrivate"`
	IdentityKeyPublic  []byte `json:"identityKeyPublic"`
	IdentityKeyPrivate []byte `json:"identityKeyPrivate"`
	SignedPreKeyPublic []byte `json:"signedPreKeyPublic"`
	SignedPreKeyPrivate []byte `json:"signedPreKeyPrivate"`
	SignedPreKeyID     uint32 `json:"signedPreKeyId"`
	SignedPreKeySig    []byte `json:"signedPreKeySignature"`
	RegistrationID     uint32 `json:"registrationId"`
	AdvSecret          []byte `json:"advSecret"`
}

func toDeviceCreds(d *core.Device) deviceCreds {
	return deviceCreds{
		NoiseKeyPublic:      d.NoiseKey.Public[:],
		NoiseKeyPrivate:     d.NoiseKey.Private[:],
		IdentityKeyPublic:   d.IdentityKey.Public[:],
		IdentityKeyPrivate:  d.IdentityKey.Private[:],
		SignedPreKeyPublic:  d.SignedPreKey.Key.Public[:],
		SignedPreKeyPrivate: d.SignedPreKey.Key.Private[:],
		SignedPreKeyID:      d.SignedPreKey.ID,
		SignedPreKeySig:     d.SignedPreKey.Signature[:],
		RegistrationID:      d.RegistrationID,
		AdvSecret:           d.AdvSecret[:],
	}
}

func (c deviceCreds) toDevice() *core.Device {
	d := &core.Device{
		RegistrationID: c.RegistrationID,
		SignedPreKey: core.PreKey{
			ID: c.SignedPreKeyID,
		},
	}
	copy(d.NoiseKey.Public[:], c.NoiseKeyPublic)
	copy(d.NoiseKey.Private[:], c.NoiseKeyPrivate)
	copy(d.IdentityKey.Public[:], c.IdentityKeyPublic)
	copy(d.IdentityKey.Private[:], c.IdentityKeyPrivate)
	copy(d.SignedPreKey.Key.Public[:], c.SignedPreKeyPublic)
	copy(d.SignedPreKey.Key.Private[:], c.SignedPreKeyPrivate)
	copy(d.SignedPreKey.Signature[:], c.SignedPreKeySig)
	copy(d.AdvSecret[:], c.AdvSecret)
	return d
}

func credsPath(dataDir, sessionID string) string {
	return filepath.Join(dataDir, sessionID, "device.json")
}

// loadOrCreateDevice loads a previously persisted device for
// sessionID, or generates and persists a fresh one if none exists.
func loadOrCreateDevice(dataDir, sessionID string) (*core.Device, error) {
	path := credsPath(dataDir, sessionID)

	data, err := os.ReadFile(path)
	if err == nil {
		var creds deviceCreds
		if err := json.Unmarshal(data, &creds); err != nil {
			return nil, err
		}
		return creds.toDevice(), nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	device, err := core.NewDevice()
	if err != nil {
		return nil, err
	}
	if err := saveDevice(dataDir, sessionID, device); err != nil {
		return nil, err
	}
	return device, nil
}

// saveDevice persists device for sessionID so a later Connect can
// resume rather than pair from scratch.
func saveDevice(dataDir, sessionID string, device *core.Device) error {
	path := credsPath(dataDir, sessionID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.Marshal(toDeviceCreds(device))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
