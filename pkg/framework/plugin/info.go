package plugin

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// uidNamespace scopes name-based plugin UIDs
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("nesthost.justyntemme.github.com"))

// Info contains plugin metadata
type Info struct {
	ID       string // Unique plugin identifier (e.g., "com.example.myplugin")
	Name     string // Display name
	Version  string // Semantic version (e.g., "1.0.0")
	Vendor   string // Company/developer name
	Category string // Plugin category (e.g., "Fx", "Instrument")
}

// UID returns a deterministic name-based UUID (version 5) for the plugin ID
func (i Info) UID() uuid.UUID {
	return uuid.NewSHA1(uidNamespace, []byte(i.ID))
}

// ValidateUID reports whether the info can produce a usable UID
func (i Info) ValidateUID() error {
	if i.ID == "" {
		return errors.New("plugin ID is empty")
	}
	return nil
}

// Descriptor returns a descriptor naming this plugin within format
func (i Info) Descriptor(format string) Descriptor {
	return Descriptor{Format: format, ID: i.ID, Name: i.Name}
}

// Descriptor identifies a loadable plugin: the format that can construct it
// and the plugin's ID within that format.
type Descriptor struct {
	Format string
	ID     string
	Name   string
}

// IsZero reports whether the descriptor names no plugin.
func (d Descriptor) IsZero() bool {
	return d.ID == ""
}

func (d Descriptor) String() string {
	if d.IsZero() {
		return "<none>"
	}
	if d.Name != "" {
		return fmt.Sprintf("%s:%s (%s)", d.Format, d.ID, d.Name)
	}
	return d.Format + ":" + d.ID
}
