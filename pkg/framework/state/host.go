package state

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	hostMagic   = "NHST"
	hostVersion = uint32(1)
)

// HostState is the persisted state of the outer host: which inner plugin
// was loaded, how its editor was shown, and the inner plugin's own blob.
type HostState struct {
	Format   string
	PluginID string
	Style    uint8
	Inner    []byte
}

// Empty reports whether the state names no plugin.
func (s HostState) Empty() bool {
	return s.PluginID == ""
}

// MarshalBinary encodes the state. An empty state encodes to nil.
func (s HostState) MarshalBinary() ([]byte, error) {
	if s.Empty() {
		return nil, nil
	}

	var buf bytes.Buffer
	buf.WriteString(hostMagic)
	binary.Write(&buf, binary.LittleEndian, hostVersion)
	if err := writeString(&buf, s.Format); err != nil {
		return nil, fmt.Errorf("format: %w", err)
	}
	if err := writeString(&buf, s.PluginID); err != nil {
		return nil, fmt.Errorf("plugin id: %w", err)
	}
	buf.WriteByte(s.Style)
	if uint64(len(s.Inner)) > math.MaxUint32 {
		return nil, fmt.Errorf("inner state too large: %d bytes", len(s.Inner))
	}
	binary.Write(&buf, binary.LittleEndian, uint32(len(s.Inner)))
	buf.Write(s.Inner)
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes data written by MarshalBinary. Empty data
// decodes to an empty state.
func (s *HostState) UnmarshalBinary(data []byte) error {
	*s = HostState{}
	if len(data) == 0 {
		return nil
	}

	r := bytes.NewReader(data)
	header := make([]byte, len(hostMagic))
	if _, err := io.ReadFull(r, header); err != nil || string(header) != hostMagic {
		return fmt.Errorf("invalid host state header")
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	if version > hostVersion {
		return fmt.Errorf("host state version %d is newer than supported version %d", version, hostVersion)
	}

	var out HostState
	var err error
	if out.Format, err = readString(r); err != nil {
		return fmt.Errorf("format: %w", err)
	}
	if out.PluginID, err = readString(r); err != nil {
		return fmt.Errorf("plugin id: %w", err)
	}
	if out.Style, err = r.ReadByte(); err != nil {
		return fmt.Errorf("style: %w", err)
	}

	var innerLen uint32
	if err := binary.Read(r, binary.LittleEndian, &innerLen); err != nil {
		return fmt.Errorf("inner length: %w", err)
	}
	if int64(innerLen) > int64(r.Len()) {
		return fmt.Errorf("inner state truncated: want %d bytes, have %d", innerLen, r.Len())
	}
	if innerLen > 0 {
		out.Inner = make([]byte, innerLen)
		if _, err := io.ReadFull(r, out.Inner); err != nil {
			return err
		}
	}

	*s = out
	return nil
}

func writeString(w *bytes.Buffer, v string) error {
	if len(v) > math.MaxUint16 {
		return fmt.Errorf("string too long: %d bytes", len(v))
	}
	binary.Write(w, binary.LittleEndian, uint16(len(v)))
	w.WriteString(v)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if int(n) > r.Len() {
		return "", io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
