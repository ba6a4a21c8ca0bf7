// Package state serializes plugin parameters and the host's own session
// state to compact little-endian binary blobs.
package state

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/justyntemme/nesthost/pkg/framework/param"
)

const paramMagic = "NHPRM1"

// Manager handles plugin state saving and loading
type Manager struct {
	version    uint32
	registry   *param.Registry
	customSave CustomSaveFunc
	customLoad CustomLoadFunc
}

// CustomSaveFunc allows plugins to save additional state beyond parameters
type CustomSaveFunc func(w io.Writer) error

// CustomLoadFunc reads back what the matching CustomSaveFunc wrote
type CustomLoadFunc func(r io.Reader) error

// NewManager creates a new state manager
func NewManager(registry *param.Registry) *Manager {
	return &Manager{
		version:  1,
		registry: registry,
	}
}

// SetCustomState sets the functions for saving and loading custom state
func (m *Manager) SetCustomState(save CustomSaveFunc, load CustomLoadFunc) {
	m.customSave = save
	m.customLoad = load
}

// Save writes the plugin state to a writer
func (m *Manager) Save(w io.Writer) error {
	if _, err := io.WriteString(w, paramMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, m.version); err != nil {
		return err
	}

	params := m.registry.All()
	if err := binary.Write(w, binary.LittleEndian, int32(len(params))); err != nil {
		return err
	}
	for _, p := range params {
		if err := binary.Write(w, binary.LittleEndian, p.ID); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, p.GetValue()); err != nil {
			return err
		}
	}

	if m.customSave == nil {
		return binary.Write(w, binary.LittleEndian, uint32(0))
	}
	var custom bytes.Buffer
	if err := m.customSave(&custom); err != nil {
		return fmt.Errorf("custom state: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(custom.Len())); err != nil {
		return err
	}
	_, err := w.Write(custom.Bytes())
	return err
}

// Load reads the plugin state from a reader. Unknown parameter IDs are
// skipped.
func (m *Manager) Load(r io.Reader) error {
	header := make([]byte, len(paramMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if string(header) != paramMagic {
		return fmt.Errorf("invalid state format")
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return err
	}
	if version > m.version {
		return fmt.Errorf("state version %d is newer than supported version %d", version, m.version)
	}

	var paramCount int32
	if err := binary.Read(r, binary.LittleEndian, &paramCount); err != nil {
		return err
	}
	if paramCount < 0 {
		return fmt.Errorf("invalid parameter count %d", paramCount)
	}

	for i := int32(0); i < paramCount; i++ {
		var id uint32
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return err
		}
		var value float64
		if err := binary.Read(r, binary.LittleEndian, &value); err != nil {
			return err
		}
		if p := m.registry.Get(id); p != nil {
			p.SetValue(value)
		}
	}

	var customLen uint32
	if err := binary.Read(r, binary.LittleEndian, &customLen); err != nil {
		return err
	}
	if customLen == 0 {
		return nil
	}
	if m.customLoad == nil {
		// nothing to hand it to
		_, err := io.CopyN(io.Discard, r, int64(customLen))
		return err
	}
	return m.customLoad(io.LimitReader(r, int64(customLen)))
}

// SaveBytes returns the state as a byte slice.
func (m *Manager) SaveBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := m.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadBytes restores state from a byte slice.
func (m *Manager) LoadBytes(data []byte) error {
	return m.Load(bytes.NewReader(data))
}
