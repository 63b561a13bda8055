package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sysplug.dev/cli/pkg/system"
)

// TestDescriptor_Validate_RejectsEmptyFields tests descriptor validation with various inputs
func TestDescriptor_Validate_RejectsEmptyFields(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		entry    string
		wantErrs []error
	}{
		{
			name:     "Complete_ShouldSucceed",
			filename: "physics",
			entry:    "sysplug::systems::Physics",
		},
		{
			name:     "EmptyFilename_ShouldFail",
			entry:    "sysplug::systems::Physics",
			wantErrs: []error{ErrEmptyFilename},
		},
		{
			name:     "EmptyName_ShouldFail",
			filename: "physics",
			wantErrs: []error{ErrEmptyName},
		},
		{
			name:     "BothEmpty_ShouldReportBoth",
			wantErrs: []error{ErrEmptyFilename, ErrEmptyName},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.filename, tt.entry, nil).Validate()

			if len(tt.wantErrs) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErrs {
				assert.ErrorIs(t, err, want)
			}
		})
	}
}

// TestDescriptor_Config_IsImmutable tests that neither the caller's map nor the returned map alias the descriptor
func TestDescriptor_Config_IsImmutable(t *testing.T) {
	cfg := system.Config{"gravity": -9.8}
	d := New("physics", "Physics", cfg)

	cfg["gravity"] = 0.0
	assert.Equal(t, -9.8, d.Config()["gravity"], "Caller mutation should not leak into descriptor")

	got := d.Config()
	got["gravity"] = 1.0
	assert.Equal(t, -9.8, d.Config()["gravity"], "Returned copy should not alias descriptor state")
}

func TestFromElement(t *testing.T) {
	_, ok := FromElement(nil)
	assert.False(t, ok, "Nil element should not produce a descriptor")

	d, ok := FromElement(&Element{
		Filename: "physics",
		Name:     "Physics",
		Config:   system.Config{"engine": "dart"},
	})
	require.True(t, ok)
	assert.Equal(t, "physics", d.Filename())
	assert.Equal(t, "Physics", d.Name())
	assert.Equal(t, "dart", d.Config()["engine"])
	assert.Equal(t, "Physics[physics]", d.String())
}
