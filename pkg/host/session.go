package host

import (
	"fmt"

	"github.com/justyntemme/nesthost/pkg/framework/bus"
	fwplugin "github.com/justyntemme/nesthost/pkg/framework/plugin"
)

// SessionConfig is the audio session the outer host runs in.
type SessionConfig struct {
	SampleRate float64
	BlockSize  int32
	Layout     bus.Layout
	Playing    bool
}

// Prepared reports whether the session has a sample rate and block size
// a unit can be prepared with.
func (s SessionConfig) Prepared() bool {
	return s.SampleRate > 0 && s.BlockSize > 0
}

// sameFormat reports whether a unit prepared for s can run in o unchanged.
func (s SessionConfig) sameFormat(o SessionConfig) bool {
	return s.SampleRate == o.SampleRate && s.BlockSize == o.BlockSize && s.Layout == o.Layout
}

func (s SessionConfig) String() string {
	state := "stopped"
	if s.Playing {
		state = "playing"
	}
	return fmt.Sprintf("%.0fHz/%d %s %s", s.SampleRate, s.BlockSize, s.Layout, state)
}

// EditorStyle is how the inner plugin's editor is presented.
type EditorStyle uint8

const (
	EditorThisWindow EditorStyle = iota
	EditorNewWindow
)

func (s EditorStyle) String() string {
	switch s {
	case EditorThisWindow:
		return "this-window"
	case EditorNewWindow:
		return "new-window"
	default:
		return fmt.Sprintf("EditorStyle(%d)", uint8(s))
	}
}

// LoadRequest asks the loader to replace the inner plugin. A request with
// a zero descriptor clears it.
type LoadRequest struct {
	Descriptor fwplugin.Descriptor
	State      []byte
	Style      EditorStyle
}

// IsClear reports whether the request unloads the inner plugin.
func (r LoadRequest) IsClear() bool {
	return r.Descriptor.IsZero()
}
