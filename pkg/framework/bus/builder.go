package bus

import "fmt"

// maxChannels bounds a single bus.
const maxChannels = 32

// Builder assembles a Configuration. Build validates it.
type Builder struct {
	config *Configuration
}

func NewBuilder() *Builder {
	return &Builder{config: &Configuration{}}
}

func (b *Builder) audio(direction Direction, busType Type, name string, channels int32) *Builder {
	b.config.audioBuses = append(b.config.audioBuses, Info{
		MediaType:    MediaTypeAudio,
		Direction:    direction,
		ChannelCount: channels,
		Name:         name,
		BusType:      busType,
		// aux buses stay off until the host enables them
		IsActive: busType == TypeMain,
	})
	return b
}

// WithAudioInput adds a main audio input.
func (b *Builder) WithAudioInput(name string, channels int32) *Builder {
	return b.audio(DirectionInput, TypeMain, name, channels)
}

// WithAudioOutput adds a main audio output.
func (b *Builder) WithAudioOutput(name string, channels int32) *Builder {
	return b.audio(DirectionOutput, TypeMain, name, channels)
}

// WithLayout adds main buses matching l. A disabled input adds none.
func (b *Builder) WithLayout(l Layout) *Builder {
	if l.MainInput > 0 {
		b.WithAudioInput(channelName(l.MainInput, "In"), l.MainInput)
	}
	return b.WithAudioOutput(channelName(l.MainOutput, "Out"), l.MainOutput)
}

// WithSidechain adds an inactive stereo aux input.
func (b *Builder) WithSidechain(name string) *Builder {
	return b.audio(DirectionInput, TypeAux, name, 2)
}

func (b *Builder) WithEventInput(name string) *Builder {
	b.config.AddEventBus(DirectionInput, name)
	return b
}

func (b *Builder) WithEventOutput(name string) *Builder {
	b.config.AddEventBus(DirectionOutput, name)
	return b
}

// Validate requires an output (audio or event), at most one main audio
// bus per direction, and sane channel counts.
func (b *Builder) Validate() error {
	var mains [2]int
	output := false
	for _, bus := range b.config.audioBuses {
		if bus.ChannelCount <= 0 || bus.ChannelCount > maxChannels {
			return fmt.Errorf("bus %q: invalid channel count %d", bus.Name, bus.ChannelCount)
		}
		if bus.BusType != TypeMain {
			continue
		}
		mains[bus.Direction]++
		if mains[bus.Direction] > 1 {
			return fmt.Errorf("bus %q: second main bus in the same direction", bus.Name)
		}
		output = output || bus.Direction == DirectionOutput
	}
	for _, bus := range b.config.eventBuses {
		output = output || bus.Direction == DirectionOutput
	}
	if !output {
		return fmt.Errorf("configuration has no output bus")
	}
	return nil
}

func (b *Builder) Build() (*Configuration, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b.config, nil
}

// MustBuild is Build for configurations fixed at compile time. It panics
// on an invalid configuration.
func (b *Builder) MustBuild() *Configuration {
	config, err := b.Build()
	if err != nil {
		panic(err)
	}
	return config
}
