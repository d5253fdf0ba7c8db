package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hatlonely/dbstruct/log/writer"
	"github.com/hatlonely/dbstruct/ref"
)

func TestNewSLogWithOptions(t *testing.T) {
	tests := []struct {
		name    string
		options *SLogOptions
		wantErr bool
	}{
		{name: "nil options", options: nil, wantErr: true},
		{name: "default console output", options: &SLogOptions{Level: "info"}},
		{
			name: "console output with options",
			options: &SLogOptions{
				Level:  "debug",
				Format: "json",
				Output: &ref.TypeOptions{
					Namespace: writer.Namespace,
					Type:      "ConsoleWriter",
					Options:   &writer.ConsoleWriterOptions{Target: "stderr"},
				},
			},
		},
		{name: "invalid level", options: &SLogOptions{Level: "invalid"}, wantErr: true},
		{name: "invalid format", options: &SLogOptions{Format: "xml"}, wantErr: true},
		{
			name: "unknown writer",
			options: &SLogOptions{
				Output: &ref.TypeOptions{Namespace: writer.Namespace, Type: "KafkaWriter"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewSLogWithOptions(tt.options)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSLogWithOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && l == nil {
				t.Fatal("NewSLogWithOptions() returned nil logger")
			}
		})
	}
}

func TestSLogFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := NewSLogWithOptions(&SLogOptions{
		Level:      "debug",
		Format:     "json",
		TimeFormat: "2006-01-02",
		Fields:     map[string]any{"service": "dbstruct"},
		Output: &ref.TypeOptions{
			Namespace: writer.Namespace,
			Type:      "FileWriter",
			Options:   &writer.FileWriterOptions{Path: path},
		},
	})
	if err != nil {
		t.Fatalf("NewSLogWithOptions() error = %v", err)
	}

	l.With("table", "person").WithGroup("sql").Debug("select", "rows", 1)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	content := string(data)
	for _, want := range []string{`"service":"dbstruct"`, `"table":"person"`, `"sql":{"rows":1}`, `"msg":"select"`} {
		if !strings.Contains(content, want) {
			t.Errorf("log output %q does not contain %q", content, want)
		}
	}
}

func TestSLogLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewSLog(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))

	l.Info("hidden")
	l.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("info message should be filtered, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn message missing, got %q", buf.String())
	}
}

func TestRegisteredSLog(t *testing.T) {
	obj, err := ref.New(Namespace, "SLog", &SLogOptions{Level: "error"})
	if err != nil {
		t.Fatalf("ref.New() error = %v", err)
	}
	if _, ok := obj.(Logger); !ok {
		t.Fatalf("ref.New() returned %T, want Logger", obj)
	}

	NewDiscard().Error("dropped")
}
