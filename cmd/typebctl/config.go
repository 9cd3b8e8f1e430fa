package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"subcarrier.dev/typeb"
)

// Profile is a named device configuration loaded from a YAML file,
// the way deviceid.go's vendor/model table is loaded in the teacher
// pack's ham-radio TNC tool — here reduced to one reader profile per
// file rather than a lookup table, since a typebctl invocation talks
// to exactly one reader.
type Profile struct {
	Device       string `yaml:"device"`
	Baud         int    `yaml:"baud"`
	PUPI         string `yaml:"pupi"`
	TimeoutTicks uint32 `yaml:"timeout_ticks"`
	MaxFrame     int    `yaml:"max_frame"`
}

func defaultProfile() Profile {
	return Profile{
		Baud:         115200,
		TimeoutTicks: typeb.DefaultFWT,
		MaxFrame:     typeb.MaxFrameSize,
	}
}

func loadProfile(path string) (Profile, error) {
	p := defaultProfile()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("typebctl: load profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("typebctl: parse profile %s: %w", path, err)
	}
	return p, nil
}

// pupiBytes decodes the profile's configured PUPI, defaulting to the
// all-zero PUPI when none is set.
func (p Profile) pupiBytes() ([4]byte, error) {
	var out [4]byte
	if p.PUPI == "" {
		return out, nil
	}
	b, err := hex.DecodeString(p.PUPI)
	if err != nil {
		return out, fmt.Errorf("typebctl: invalid pupi %q: %w", p.PUPI, err)
	}
	if len(b) != 4 {
		return out, fmt.Errorf("typebctl: pupi must be 4 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}
