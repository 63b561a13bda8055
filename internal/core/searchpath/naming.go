package searchpath

import (
	"path/filepath"
	"runtime"
	"strings"
)

// Naming maps a logical library name to the file names that may hold it in
// a single directory, most specific first.
type Naming interface {
	Candidates(name string) []string
}

// NamingFunc adapts a function to Naming.
type NamingFunc func(name string) []string

func (f NamingFunc) Candidates(name string) []string { return f(name) }

// SharedLibraryNaming follows the host platform's shared-library convention.
var SharedLibraryNaming Naming = sharedLibraryNaming{goos: runtime.GOOS}

// ExecutableNaming looks for plugin executables.
var ExecutableNaming Naming = executableNaming{goos: runtime.GOOS}

type sharedLibraryNaming struct {
	goos string
}

func (n sharedLibraryNaming) extensions() []string {
	switch n.goos {
	case "windows":
		return []string{".dll"}
	case "darwin":
		return []string{".dylib", ".so"}
	default:
		return []string{".so"}
	}
}

func (n sharedLibraryNaming) Candidates(name string) []string {
	exts := n.extensions()
	var out []string
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			out = append(out, name)
			if !strings.HasPrefix(filepath.Base(name), "lib") && n.goos != "windows" {
				out = append(out, withLibPrefix(name))
			}
			return out
		}
	}
	for _, ext := range exts {
		if n.goos != "windows" {
			out = append(out, withLibPrefix(name)+ext)
		}
		out = append(out, name+ext)
	}
	return out
}

// withLibPrefix prefixes the file part of name, keeping any directory.
func withLibPrefix(name string) string {
	dir, file := filepath.Split(name)
	return dir + "lib" + file
}

type executableNaming struct {
	goos string
}

func (n executableNaming) Candidates(name string) []string {
	if n.goos == "windows" && !strings.HasSuffix(name, ".exe") {
		return []string{name + ".exe", name}
	}
	return []string{name}
}
