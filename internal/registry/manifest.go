package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// VersionPolicy selects how a requested minor version is matched against
// the version a service supports.
type VersionPolicy string

const (
	// PolicyStrict accepts only an exact minor version match.
	PolicyStrict VersionPolicy = "strict"
	// PolicyRelaxed accepts any requested minor version not newer than
	// the supported one.
	PolicyRelaxed VersionPolicy = "relaxed"
)

func (p VersionPolicy) valid() bool {
	return p == PolicyStrict || p == PolicyRelaxed
}

// ServiceSpec declares one service in the manifest.
type ServiceSpec struct {
	SID          uint32 `yaml:"sid"`
	Name         string `yaml:"name"`
	MinorVersion uint32 `yaml:"minor_version"`
	// NonSecure marks the service reachable by less-trusted callers.
	NonSecure     bool          `yaml:"non_secure"`
	VersionPolicy VersionPolicy `yaml:"version_policy"`
	// QueueDepth bounds the service's pending message queue. Zero means
	// the default.
	QueueDepth int `yaml:"queue_depth,omitempty"`
}

// Manifest is the YAML document describing the platform's services.
type Manifest struct {
	Services []ServiceSpec `yaml:"services"`
}

// LoadManifest reads and validates a service manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses and validates manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest for structural problems.
func (m *Manifest) Validate() error {
	if len(m.Services) == 0 {
		return fmt.Errorf("manifest declares no services")
	}
	seen := make(map[uint32]string, len(m.Services))
	for i, s := range m.Services {
		if s.Name == "" {
			return fmt.Errorf("service %d: name is empty", i)
		}
		if s.SID == 0 {
			return fmt.Errorf("service %q: sid is zero", s.Name)
		}
		if prev, dup := seen[s.SID]; dup {
			return fmt.Errorf("services %q and %q share sid %#x", prev, s.Name, s.SID)
		}
		seen[s.SID] = s.Name
		if s.VersionPolicy != "" && !s.VersionPolicy.valid() {
			return fmt.Errorf("service %q: unknown version_policy %q", s.Name, s.VersionPolicy)
		}
		if s.QueueDepth < 0 {
			return fmt.Errorf("service %q: negative queue_depth", s.Name)
		}
	}
	return nil
}
