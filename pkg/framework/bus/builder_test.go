package bus

import (
	"testing"
)

func TestBuilder(t *testing.T) {
	t.Run("BasicStereo", func(t *testing.T) {
		config, err := NewBuilder().
			WithAudioInput("In", 2).
			WithAudioOutput("Out", 2).
			Build()

		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}

		if config.GetBusCount(MediaTypeAudio, DirectionInput) != 1 {
			t.Error("Expected 1 input bus")
		}
		if config.GetBusCount(MediaTypeAudio, DirectionOutput) != 1 {
			t.Error("Expected 1 output bus")
		}
	})

	t.Run("WithSidechain", func(t *testing.T) {
		config := NewBuilder().
			WithAudioInput("Main", 2).
			WithAudioOutput("Out", 2).
			WithSidechain("SC").
			MustBuild()

		sc := config.GetBusInfo(MediaTypeAudio, DirectionInput, 1)
		if sc == nil {
			t.Fatal("Expected sidechain bus to exist")
		}
		if sc.BusType != TypeAux {
			t.Error("Expected sidechain to be auxiliary bus")
		}
		if sc.IsActive {
			t.Error("Expected sidechain to start inactive")
		}
	})

	t.Run("EventBuses", func(t *testing.T) {
		config := NewBuilder().
			WithEventInput("MIDI In").
			WithEventOutput("MIDI Out").
			MustBuild()

		if config.GetBusCount(MediaTypeEvent, DirectionInput) != 1 {
			t.Error("Expected 1 event input bus")
		}
		if config.GetBusCount(MediaTypeEvent, DirectionOutput) != 1 {
			t.Error("Expected 1 event output bus")
		}
	})
}

func TestBuilderValidation(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
		wantErr bool
	}{
		{"no output", NewBuilder().WithAudioInput("In", 2), true},
		{"zero channels", NewBuilder().WithAudioOutput("Out", 0), true},
		{"too many channels", NewBuilder().WithAudioOutput("Out", 64), true},
		{"midi only", NewBuilder().WithEventInput("In").WithEventOutput("Out"), false},
		{"mono", NewBuilder().WithLayout(Layout{MainInput: 1, MainOutput: 1}), false},
		{"disabled input", NewBuilder().WithLayout(Layout{MainOutput: 2}), false},
		{"two main outputs", NewBuilder().WithAudioOutput("A", 2).WithAudioOutput("B", 2), true},
		{"sidechain only", NewBuilder().WithSidechain("SC"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			if (err != nil) != tt.wantErr {
				t.Errorf("Build() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMustBuildPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected MustBuild to panic on invalid configuration")
		}
	}()
	NewBuilder().MustBuild()
}
