package param

import (
	"math"
	"sync"
	"testing"
)

func TestParameterNormalization(t *testing.T) {
	p := New(1, "Gain").Range(-24, 24).Default(0).Unit("dB").Build()

	if got := p.GetValue(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Expected normalized default 0.5, got %f", got)
	}

	tests := []struct {
		plain float64
		want  float64
	}{
		{-24, 0},
		{24, 1},
		{12, 0.75},
		{-48, 0},
		{48, 1},
	}
	for _, tt := range tests {
		if got := p.Normalize(tt.plain); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Normalize(%f) = %f, want %f", tt.plain, got, tt.want)
		}
	}

	p.SetValue(2)
	if p.GetValue() != 1 {
		t.Errorf("Expected clamp to 1, got %f", p.GetValue())
	}
	p.SetValue(-1)
	if p.GetValue() != 0 {
		t.Errorf("Expected clamp to 0, got %f", p.GetValue())
	}
}

func TestParameterFormatting(t *testing.T) {
	gain := New(1, "Gain").Range(-60, 12).Formatter(DecibelFormatter, DecibelParser).Build()

	if got := gain.FormatValue(0); got != "-∞ dB" {
		t.Errorf("Expected -∞ dB, got %q", got)
	}
	if got := gain.FormatValue(1); got != "12.0 dB" {
		t.Errorf("Expected 12.0 dB, got %q", got)
	}

	v, err := gain.ParseValue("0 dB")
	if err != nil {
		t.Fatalf("ParseValue failed: %v", err)
	}
	if got := gain.Denormalize(v); math.Abs(got) > 1e-9 {
		t.Errorf("Expected 0 dB, got %f", got)
	}

	toggle := New(2, "Enabled").Toggle().Build()
	if got := toggle.FormatValue(1); got != "On" {
		t.Errorf("Expected On, got %q", got)
	}
	if !toggle.IsDiscrete() {
		t.Error("Expected toggle to be discrete")
	}

	steps := New(3, "Mode").Range(0, 3).Steps(3).Build()
	if got := steps.FormatValue(1); got != "3" {
		t.Errorf("Expected integer formatting, got %q", got)
	}
	if _, err := steps.ParseValue("abc"); err == nil {
		t.Error("Expected parse error")
	}
}

func TestParameterFlags(t *testing.T) {
	meter := New(1, "Level").ReadOnly().Build()
	if meter.IsAutomatable() {
		t.Error("Read-only parameter must not be automatable")
	}
	if !New(2, "Gain").Build().IsAutomatable() {
		t.Error("Default parameter should be automatable")
	}
}

func TestParameterConcurrentAccess(t *testing.T) {
	p := New(1, "Gain").Build()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				p.SetValue(float64(i) / 4)
				v := p.GetValue()
				if v < 0 || v > 1 {
					t.Errorf("Out of range value %f", v)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestListParameter(t *testing.T) {
	p := New(4, "Channel").List("All", "1", "2").Build()

	if !p.IsDiscrete() || p.Flags&IsList == 0 {
		t.Fatal("Expected a discrete list parameter")
	}
	if got := p.FormatValue(0.5); got != "1" {
		t.Errorf("Expected label 1, got %q", got)
	}
	if got := p.FormatValue(1); got != "2" {
		t.Errorf("Expected label 2, got %q", got)
	}

	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"all", 0, true},
		{" 2 ", 1, true},
		{"1", 0.5, true},
		{"7", 0, false},
		{"mono", 0, false},
	}
	for _, tt := range tests {
		got, err := p.ParseValue(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseValue(%q) error = %v", tt.in, err)
			continue
		}
		if tt.ok && math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ParseValue(%q) = %f, want %f", tt.in, got, tt.want)
		}
	}
}

func TestDecibelParser(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"-6 dB", -6},
		{"3.5db", 3.5},
		{"-∞ dB", SilenceDB},
		{"-inf", SilenceDB},
		{"0", 0},
	}
	for _, tt := range tests {
		got, err := DecibelParser(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("DecibelParser(%q) = %f, %v; want %f", tt.in, got, err, tt.want)
		}
	}
	if _, err := DecibelParser("loud"); err == nil {
		t.Error("Expected parse error")
	}
}

func TestCountFormatter(t *testing.T) {
	if got := CountFormatter("notes")(41.6); got != "42 notes" {
		t.Errorf("Expected 42 notes, got %q", got)
	}
}

func TestBuildChecked(t *testing.T) {
	if _, err := New(1, "Bad").Range(1, 0).BuildChecked(); err == nil {
		t.Error("Expected error for inverted range")
	}
	p, err := New(2, "Good").Range(0, 10).Default(5).BuildChecked()
	if err != nil {
		t.Fatalf("BuildChecked failed: %v", err)
	}
	if p.GetPlainValue() != 5 {
		t.Errorf("Expected default 5, got %f", p.GetPlainValue())
	}
}

func TestRangeKeepsPlainDefault(t *testing.T) {
	p := New(1, "Freq").Default(0.5).Range(0, 10).Build()
	if got := p.GetPlainValue(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Expected plain default 0.5, got %f", got)
	}
}
