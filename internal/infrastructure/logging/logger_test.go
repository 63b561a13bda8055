package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel hclog.Level
	}{
		{name: "DefaultLevel_ShouldBeWarn", level: "", wantLevel: hclog.Warn},
		{name: "UnknownLevel_ShouldBeWarn", level: "loud", wantLevel: hclog.Warn},
		{name: "Debug_ShouldBeDebug", level: "debug", wantLevel: hclog.Debug},
		{name: "MixedCase_ShouldParse", level: "ERROR", wantLevel: hclog.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(Options{Level: tt.level, Output: &bytes.Buffer{}})
			assert.Equal(t, tt.wantLevel, logger.GetLevel())
			assert.Equal(t, "sysplug", logger.Name())
		})
	}
}

func TestNew_Output(t *testing.T) {
	t.Run("Text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(Options{Level: "info", Output: &buf})

		logger.Debug("hidden")
		logger.Warn("failed to load system plugin", "name", "Physics")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "[WARN]  sysplug: failed to load system plugin: name=Physics")
	})

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(Options{Name: "host", Level: "info", Output: &buf, JSON: true})

		logger.Named("native").Info("loaded library", "entries", 2)

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "host.native", line["@module"])
		assert.Equal(t, "loaded library", line["@message"])
		assert.Equal(t, float64(2), line["entries"])
	})
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard().Error("ignored") })
}
