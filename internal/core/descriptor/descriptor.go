package descriptor

import (
	"errors"
	"fmt"
	"maps"

	"sysplug.dev/cli/pkg/system"
)

var (
	ErrEmptyFilename = errors.New("plugin filename cannot be empty")
	ErrEmptyName     = errors.New("plugin name cannot be empty")
)

// Descriptor is a value object identifying which library to load and which
// of its entry points to instantiate.
type Descriptor struct {
	filename string
	name     string
	config   system.Config
}

// New creates a Descriptor. Validation is deferred to Validate so that an
// empty descriptor can still be reported by the loader.
func New(filename, name string, cfg system.Config) Descriptor {
	return Descriptor{
		filename: filename,
		name:     name,
		config:   maps.Clone(cfg),
	}
}

// Element is the already-parsed configuration element a descriptor may be
// derived from, such as one entry of a plugin manifest.
type Element struct {
	Filename string        `yaml:"filename" json:"filename"`
	Name     string        `yaml:"name" json:"name"`
	Config   system.Config `yaml:"config,omitempty" json:"config,omitempty"`
}

// FromElement derives a Descriptor from a parsed element. A nil element
// yields false.
func FromElement(el *Element) (Descriptor, bool) {
	if el == nil {
		return Descriptor{}, false
	}
	return New(el.Filename, el.Name, el.Config), true
}

// Filename returns the logical library name.
func (d Descriptor) Filename() string {
	return d.filename
}

// Name returns the entry-point name.
func (d Descriptor) Name() string {
	return d.name
}

// Config returns a copy of the opaque configuration payload.
func (d Descriptor) Config() system.Config {
	return maps.Clone(d.config)
}

// Validate reports whether the descriptor can be resolved at all.
func (d Descriptor) Validate() error {
	var errs []error
	if d.filename == "" {
		errs = append(errs, ErrEmptyFilename)
	}
	if d.name == "" {
		errs = append(errs, ErrEmptyName)
	}
	return errors.Join(errs...)
}

// String implements the Stringer interface
func (d Descriptor) String() string {
	return fmt.Sprintf("%s[%s]", d.name, d.filename)
}
