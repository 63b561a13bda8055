package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(`
plugins:
  - filename: physics
    name: sysplug::systems::Physics
    config:
      gravity: -9.8
      solver:
        iterations: 10
  - filename: /opt/plugins/libsensors.so
    name: sysplug::systems::Sensors
`))
	require.NoError(t, err)
	require.Len(t, m.Plugins, 2)

	assert.Equal(t, "physics", m.Plugins[0].Filename)
	assert.Equal(t, "sysplug::systems::Physics", m.Plugins[0].Name)
	assert.Equal(t, -9.8, m.Plugins[0].Config["gravity"])
	assert.Equal(t, map[string]any{"iterations": 10}, m.Plugins[0].Config["solver"])

	assert.Equal(t, "/opt/plugins/libsensors.so", m.Plugins[1].Filename)
	assert.Nil(t, m.Plugins[1].Config)
}

func TestParseManifest_SchemaViolations(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantPath string
	}{
		{
			name:     "MissingPlugins_ShouldFail",
			input:    "systems: []\n",
			wantPath: "",
		},
		{
			name:     "MissingName_ShouldFail",
			input:    "plugins:\n  - filename: physics\n",
			wantPath: "/plugins/0",
		},
		{
			name:     "EmptyFilename_ShouldFail",
			input:    "plugins:\n  - filename: \"\"\n    name: Physics\n",
			wantPath: "/plugins/0/filename",
		},
		{
			name:     "ConfigNotObject_ShouldFail",
			input:    "plugins:\n  - filename: physics\n    name: Physics\n    config: [1, 2]\n",
			wantPath: "/plugins/0/config",
		},
		{
			name:     "UnknownField_ShouldFail",
			input:    "plugins:\n  - filename: physics\n    name: Physics\n    path: /x\n",
			wantPath: "/plugins/0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.input))
			require.Error(t, err)

			var me *ManifestError
			require.True(t, errors.As(err, &me), "expected *ManifestError, got %v", err)
			require.NotEmpty(t, me.Issues)

			paths := make([]string, 0, len(me.Issues))
			for _, issue := range me.Issues {
				paths = append(paths, issue.Path)
			}
			assert.Contains(t, paths, tt.wantPath)
			assert.Contains(t, err.Error(), "invalid manifest")
		})
	}
}

func TestParseManifest_InvalidYAML(t *testing.T) {
	_, err := ParseManifest([]byte("plugins: [\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing YAML")
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "systems.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plugins:\n  - filename: physics\n    name: Physics\n"), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Len(t, m.Plugins, 1)

	_, err = LoadManifest(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
