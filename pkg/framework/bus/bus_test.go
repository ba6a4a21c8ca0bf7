package bus

import (
	"testing"
)

func TestNewStereoConfiguration(t *testing.T) {
	config := NewStereoConfiguration()

	if got := config.GetBusCount(MediaTypeAudio, DirectionInput); got != 1 {
		t.Errorf("Expected 1 audio input bus, got %d", got)
	}
	if got := config.GetBusCount(MediaTypeAudio, DirectionOutput); got != 1 {
		t.Errorf("Expected 1 audio output bus, got %d", got)
	}

	inBus := config.GetBusInfo(MediaTypeAudio, DirectionInput, 0)
	if inBus == nil {
		t.Fatal("Expected input bus to exist")
	}
	if inBus.ChannelCount != 2 {
		t.Errorf("Expected 2 input channels, got %d", inBus.ChannelCount)
	}
	if inBus.Name != "Stereo In" {
		t.Errorf("Expected input name 'Stereo In', got %s", inBus.Name)
	}

	if got := config.MainLayout(); got != StereoLayout {
		t.Errorf("Expected stereo layout, got %v", got)
	}
}

func TestFromLayoutDisabledInput(t *testing.T) {
	config := FromLayout(Layout{MainInput: 0, MainOutput: 1})

	if got := config.GetBusCount(MediaTypeAudio, DirectionInput); got != 0 {
		t.Errorf("Expected no input bus, got %d", got)
	}
	if got := config.MainLayout(); got.MainInput != 0 || got.MainOutput != 1 {
		t.Errorf("Unexpected layout %v", got)
	}
}

func TestAccepts(t *testing.T) {
	stereo := NewStereoConfiguration()
	mono := NewMonoConfiguration()
	instrument := NewBuilder().WithAudioOutput("Out", 2).WithEventInput("MIDI In").MustBuild()

	tests := []struct {
		name   string
		config *Configuration
		layout Layout
		want   bool
	}{
		{"stereo accepts stereo", stereo, StereoLayout, true},
		{"stereo accepts disabled input", stereo, Layout{MainOutput: 2}, true},
		{"stereo rejects mono", stereo, Layout{MainInput: 1, MainOutput: 1}, false},
		{"mono rejects stereo", mono, StereoLayout, false},
		{"instrument rejects stereo input", instrument, StereoLayout, false},
		{"instrument accepts disabled input", instrument, Layout{MainOutput: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.Accepts(tt.layout); got != tt.want {
				t.Errorf("Accepts(%v) = %v, want %v", tt.layout, got, tt.want)
			}
		})
	}
}

func TestInactiveAuxIgnoredByLayout(t *testing.T) {
	config := NewBuilder().
		WithAudioInput("In", 2).
		WithAudioOutput("Out", 2).
		WithSidechain("SC").
		MustBuild()

	if got := config.MainLayout(); got != StereoLayout {
		t.Errorf("Sidechain leaked into main layout: %v", got)
	}
}

func TestLayoutString(t *testing.T) {
	if got := StereoLayout.String(); got != "2ch/2ch" {
		t.Errorf("Unexpected string %q", got)
	}
	if got := (Layout{MainOutput: 2}).String(); got != "disabled/2ch" {
		t.Errorf("Unexpected string %q", got)
	}
}
