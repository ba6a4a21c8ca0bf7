// Package bus provides audio bus configuration and layout negotiation.
package bus

import "fmt"

// MediaType represents the type of bus
type MediaType int32

const (
	// MediaTypeAudio represents audio bus type
	MediaTypeAudio MediaType = 0
	// MediaTypeEvent represents event/MIDI bus type
	MediaTypeEvent MediaType = 1
)

// Direction represents the bus direction
type Direction int32

const (
	// DirectionInput represents input bus
	DirectionInput Direction = 0
	// DirectionOutput represents output bus
	DirectionOutput Direction = 1
)

// Type represents the bus type
type Type int32

const (
	// TypeMain represents main bus
	TypeMain Type = 0
	// TypeAux represents auxiliary bus
	TypeAux Type = 1
)

// Info contains bus configuration
type Info struct {
	MediaType    MediaType
	Direction    Direction
	ChannelCount int32
	Name         string
	BusType      Type
	IsActive     bool
}

// Layout is the channel arrangement of the main audio buses.
// A zero channel count means the bus is disabled.
type Layout struct {
	MainInput  int32
	MainOutput int32
}

// StereoLayout is the default layout of the outer host.
var StereoLayout = Layout{MainInput: 2, MainOutput: 2}

func (l Layout) String() string {
	if l.MainInput == 0 {
		return fmt.Sprintf("disabled/%dch", l.MainOutput)
	}
	return fmt.Sprintf("%dch/%dch", l.MainInput, l.MainOutput)
}

// Configuration manages audio and event buses
type Configuration struct {
	audioBuses []Info
	eventBuses []Info
}

// NewStereoConfiguration creates a standard stereo I/O configuration
func NewStereoConfiguration() *Configuration {
	return FromLayout(StereoLayout)
}

// NewMonoConfiguration creates a mono I/O configuration
func NewMonoConfiguration() *Configuration {
	return FromLayout(Layout{MainInput: 1, MainOutput: 1})
}

// FromLayout builds a configuration with main buses matching the layout.
// A disabled input produces no input bus.
func FromLayout(l Layout) *Configuration {
	return NewBuilder().WithLayout(l).config
}

func channelName(channels int32, suffix string) string {
	switch channels {
	case 1:
		return "Mono " + suffix
	case 2:
		return "Stereo " + suffix
	default:
		return fmt.Sprintf("%dch %s", channels, suffix)
	}
}

// GetBusCount returns the number of buses for a given type and direction
func (c *Configuration) GetBusCount(mediaType MediaType, direction Direction) int32 {
	count := int32(0)
	for _, bus := range c.buses(mediaType) {
		if bus.Direction == direction {
			count++
		}
	}
	return count
}

// GetBusInfo returns information about a specific bus
func (c *Configuration) GetBusInfo(mediaType MediaType, direction Direction, index int32) *Info {
	buses := c.buses(mediaType)

	busIndex := int32(0)
	for i := range buses {
		if buses[i].Direction == direction {
			if busIndex == index {
				return &buses[i]
			}
			busIndex++
		}
	}
	return nil
}

// AddEventBus adds an event bus (for MIDI input)
func (c *Configuration) AddEventBus(direction Direction, name string) {
	c.eventBuses = append(c.eventBuses, Info{
		MediaType:    MediaTypeEvent,
		Direction:    direction,
		ChannelCount: 1,
		Name:         name,
		BusType:      TypeMain,
		IsActive:     true,
	})
}

// MainLayout reports the channel counts of the first main input and output.
func (c *Configuration) MainLayout() Layout {
	var l Layout
	if in := c.mainBus(DirectionInput); in != nil && in.IsActive {
		l.MainInput = in.ChannelCount
	}
	if out := c.mainBus(DirectionOutput); out != nil && out.IsActive {
		l.MainOutput = out.ChannelCount
	}
	return l
}

// Accepts reports whether buses with this configuration can be driven by
// buffers arranged as l. Outputs must match exactly; a disabled input in l
// is accepted by any input arrangement.
func (c *Configuration) Accepts(l Layout) bool {
	own := c.MainLayout()
	if own.MainOutput != l.MainOutput {
		return false
	}
	return l.MainInput == 0 || own.MainInput == l.MainInput
}

func (c *Configuration) mainBus(direction Direction) *Info {
	for i := range c.audioBuses {
		if c.audioBuses[i].Direction == direction && c.audioBuses[i].BusType == TypeMain {
			return &c.audioBuses[i]
		}
	}
	return nil
}

func (c *Configuration) buses(mediaType MediaType) []Info {
	if mediaType == MediaTypeEvent {
		return c.eventBuses
	}
	return c.audioBuses
}
