package config_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/slipguard/pkg/cli/config"
)

func TestLogger_Configure(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{name: "Valid level: debug", level: "debug"},
		{name: "Valid level: DEBUG (case insensitive)", level: "DEBUG"},
		{name: "Valid level: info", level: "info"},
		{name: "Valid level: Info", level: "Info"},
		{name: "Valid level: warn", level: "warn"},
		{name: "Valid level: WARN", level: "WARN"},
		{name: "Valid level: error", level: "error"},
		{name: "Valid level: ERROR", level: "ERROR"},
		{name: "Invalid level: invalid", level: "invalid", wantErr: true},
		{name: "Invalid level: empty string", level: "", wantErr: true},
		{name: "Invalid level: warning", level: "warning", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &config.Logger{
				Level:  tt.level,
				Format: config.LogFormatText,
			}

			result, err := logger.Configure()
			if tt.wantErr {
				gt.Error(t, err)
				gt.Value(t, result).Nil()
				return
			}
			gt.NoError(t, err)
			gt.NotNil(t, result)
		})
	}
}

func TestLogger_Configure_Format(t *testing.T) {
	for _, format := range []string{config.LogFormatText, config.LogFormatJSON, config.LogFormatConsole, "JSON"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			logger := &config.Logger{Level: "info", Format: format}

			result, err := logger.ConfigureWriter(&buf)
			gt.NoError(t, err)

			result.Info("test log message", "member", "foo/bar.txt")
			gt.String(t, buf.String()).Contains("test log message")
		})
	}

	t.Run("invalid format", func(t *testing.T) {
		logger := &config.Logger{Level: "info", Format: "xml"}
		_, err := logger.Configure()
		gt.Error(t, err)
	})
}

func TestLogger_Configure_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	logger := &config.Logger{Level: "info", Format: config.LogFormatJSON}

	result, err := logger.ConfigureWriter(&buf)
	gt.NoError(t, err)
	result.Info("Downloaded", "file_name", "data.zip")

	var line map[string]any
	gt.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	gt.Value(t, line["msg"]).Equal("Downloaded")
	gt.Value(t, line["file_name"]).Equal("data.zip")
	gt.NotNil(t, line["time"])
}

func TestLogger_Configure_LevelBehavior(t *testing.T) {
	var buf bytes.Buffer
	logger := &config.Logger{Level: "warn", Format: config.LogFormatText}

	result, err := logger.ConfigureWriter(&buf)
	gt.NoError(t, err)

	result.Debug("debug message")
	result.Info("info message")
	result.Warn("warn message")
	result.Error("error message")

	out := buf.String()
	gt.False(t, strings.Contains(out, "debug message"))
	gt.False(t, strings.Contains(out, "info message"))
	gt.String(t, out).Contains("warn message")
	gt.String(t, out).Contains("error message")
}

func TestLogger_Configure_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := &config.Logger{Level: "info", Format: config.LogFormatJSON}

	result, err := logger.ConfigureWriter(&buf)
	gt.NoError(t, err)

	result.Info("Downloading from URL",
		"url", "https://storage.googleapis.com/bucket/data.zip?X-Goog-Signature=deadbeefcafe",
		"webhook_url", "https://hooks.slack.com/services/T000/B000/secretpart",
		"file_name", "data.zip",
	)

	out := buf.String()
	gt.False(t, strings.Contains(out, "deadbeefcafe"))
	gt.False(t, strings.Contains(out, "secretpart"))
	gt.String(t, out).Contains("data.zip")
}

func TestLogger_Flags(t *testing.T) {
	logger := &config.Logger{}
	flags := logger.Flags()
	gt.Number(t, len(flags)).Equal(2)

	names := flagNames(flags)
	gt.True(t, names["log-level"])
	gt.True(t, names["log-format"])
}
