package searchpath

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultEnvVar holds an OS path-list of system plugin directories.
	DefaultEnvVar = "SYSPLUG_SYSTEM_PLUGIN_PATH"
	// DefaultHomeSuffix is appended to the user's home directory.
	DefaultHomeSuffix = ".sysplug/plugins"
)

// InstallDir is the install-time plugin directory.
var InstallDir = "/usr/local/lib/sysplug/plugins" // Overridden by ldflags

// Origin names the source a search directory came from.
type Origin string

const (
	OriginEnv        Origin = "env"
	OriginRegistered Origin = "registered"
	OriginHome       Origin = "home"
	OriginInstall    Origin = "install"
)

// Entry is one directory of the combined search path.
type Entry struct {
	Dir    string
	Origin Origin
}

// Options configure a Resolver. Zero values select the defaults.
type Options struct {
	EnvVar     string
	HomeSuffix string
	InstallDir string
	Naming     Naming

	LookupEnv func(key string) (string, bool)
	HomeDir   func() (string, error)
}

// Resolver assembles the combined search path and finds libraries on it.
// Registration is expected to happen before concurrent lookups start, but
// both are safe to interleave.
type Resolver struct {
	opts       Options
	registered *Set
}

// NewResolver creates a resolver with no registered paths.
func NewResolver(opts Options) *Resolver {
	if opts.EnvVar == "" {
		opts.EnvVar = DefaultEnvVar
	}
	if opts.HomeSuffix == "" {
		opts.HomeSuffix = DefaultHomeSuffix
	}
	if opts.InstallDir == "" {
		opts.InstallDir = InstallDir
	}
	if opts.Naming == nil {
		opts.Naming = SharedLibraryNaming
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	if opts.HomeDir == nil {
		opts.HomeDir = os.UserHomeDir
	}

	return &Resolver{
		opts:       opts,
		registered: NewSet(),
	}
}

// AddSearchPath registers an additional directory. Adding the same
// directory twice has no effect.
func (r *Resolver) AddSearchPath(path string) bool {
	return r.registered.Add(expandPath(path))
}

// EnvVar returns the name of the environment variable consulted first.
func (r *Resolver) EnvVar() string {
	return r.opts.EnvVar
}

// SearchPaths returns the combined, de-duplicated search path in priority
// order: environment, registered, home, install.
func (r *Resolver) SearchPaths() []Entry {
	combined := NewSet()
	var entries []Entry
	add := func(dir string, origin Origin) {
		if combined.Add(dir) {
			entries = append(entries, Entry{Dir: filepath.Clean(dir), Origin: origin})
		}
	}

	if value, ok := r.opts.LookupEnv(r.opts.EnvVar); ok {
		for _, dir := range filepath.SplitList(value) {
			if dir = strings.TrimSpace(dir); dir != "" {
				add(expandPath(dir), OriginEnv)
			}
		}
	}

	for _, dir := range r.registered.Paths() {
		add(dir, OriginRegistered)
	}

	if home, err := r.opts.HomeDir(); err == nil && home != "" {
		add(filepath.Join(home, r.opts.HomeSuffix), OriginHome)
	}

	add(r.opts.InstallDir, OriginInstall)

	return entries
}

// FindLibrary returns the first file on the combined search path matching
// the naming convention for name. Not finding one is not an error.
func (r *Resolver) FindLibrary(name string) (string, bool) {
	if name == "" {
		return "", false
	}

	if filepath.IsAbs(name) {
		if isRegularFile(name) {
			return name, true
		}
		return "", false
	}

	candidates := r.opts.Naming.Candidates(name)
	for _, entry := range r.SearchPaths() {
		for _, candidate := range candidates {
			path := filepath.Join(entry.Dir, candidate)
			if isRegularFile(path) {
				return path, true
			}
		}
	}

	return "", false
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// expandPath expands ~ to user home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
