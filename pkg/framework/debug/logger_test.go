package debug

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestLogger(t *testing.T) {
	t.Run("BasicLogging", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, "TEST", FlagLevel|FlagPrefix)

		logger.Info("Hello %s", "World")

		output := buf.String()
		if !strings.Contains(output, "[INFO]") {
			t.Error("Missing log level")
		}
		if !strings.Contains(output, "[TEST]") {
			t.Error("Missing prefix")
		}
		if !strings.Contains(output, "Hello World") {
			t.Error("Missing message")
		}
	})

	t.Run("LogLevels", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, "", FlagLevel)
		logger.SetLevel(LogLevelWarn)

		logger.Debug("debug message")
		logger.Info("info message")
		logger.Warn("warn message")
		logger.Error("error message")

		output := buf.String()
		if strings.Contains(output, "debug message") {
			t.Error("Debug message should not be logged")
		}
		if strings.Contains(output, "info message") {
			t.Error("Info message should not be logged")
		}
		if !strings.Contains(output, "warn message") {
			t.Error("Warn message should be logged")
		}
		if !strings.Contains(output, "error message") {
			t.Error("Error message should be logged")
		}
	})

	t.Run("Off", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, "", DefaultFlags)
		logger.SetLevel(LogLevelOff)

		logger.Error("should not appear")

		if buf.Len() > 0 {
			t.Error("Logger at LogLevelOff should not write")
		}
	})

	t.Run("FileInfo", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, "", FlagShortFile|FlagLevel)

		logger.Info("test")

		output := buf.String()
		if !strings.Contains(output, "logger_test.go:") {
			t.Errorf("Missing file info in output: %s", output)
		}
	})
}

func TestNamed(t *testing.T) {
	var buf bytes.Buffer
	root := New(&buf, "nesthost", FlagPrefix)
	loader := root.Named("loader")

	if loader.Prefix() != "nesthost.loader" {
		t.Errorf("Unexpected prefix %q", loader.Prefix())
	}
	if New(&buf, "", 0).Named("x").Prefix() != "x" {
		t.Error("Named on an unprefixed logger should use the bare name")
	}

	loader.Info("staged")
	if !strings.Contains(buf.String(), "[nesthost.loader] staged") {
		t.Errorf("Child did not write through parent output: %q", buf.String())
	}

	root.SetLevel(LogLevelError)
	buf.Reset()
	loader.Info("hidden")
	if buf.Len() > 0 {
		t.Error("Child should follow the parent's level")
	}
}

func TestNamedConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	root := New(&buf, "", 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(l *Logger) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Info("line")
			}
		}(root.Named("worker"))
	}
	wg.Wait()

	if got := strings.Count(buf.String(), "line\n"); got != 800 {
		t.Errorf("Expected 800 lines, got %d", got)
	}
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Error("nothing")
	if l.Enabled(LogLevelError) {
		t.Error("Nop logger should not be enabled")
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LogLevelDebug, "DEBUG"},
		{LogLevelInfo, "INFO"},
		{LogLevelWarn, "WARN"},
		{LogLevelError, "ERROR"},
		{LogLevelOff, "OFF"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("LogLevel.String() = %v, want %v", got, tt.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LogLevelDebug, false},
		{"WARN", LogLevelWarn, false},
		{" error ", LogLevelError, false},
		{"", LogLevelInfo, false},
		{"off", LogLevelOff, false},
		{"loud", LogLevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func BenchmarkLogger(b *testing.B) {
	logger := New(bytes.NewBuffer(nil), "BENCH", DefaultFlags)

	b.Run("Enabled", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			logger.Info("Benchmark message %d", i)
		}
	})

	b.Run("BelowLevel", func(b *testing.B) {
		logger.SetLevel(LogLevelError)
		for i := 0; i < b.N; i++ {
			logger.Info("Benchmark message %d", i)
		}
	})
}
