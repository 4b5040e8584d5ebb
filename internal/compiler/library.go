package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/funvibe/jot/internal/analyzer"
	"github.com/funvibe/jot/internal/archive"
	"github.com/funvibe/jot/internal/config"
	"github.com/funvibe/jot/internal/vm"
)

// Library is the set of prebuilt classes found in a library directory.
type Library struct {
	classes map[string]*vm.ClassFile
	raw     map[string][]byte
}

// LoadLibrary reads every .jar archive and loose .jclass file under dir.
// An empty dir yields an empty library. Later files do not replace
// classes already found, and files are visited in lexical order.
func LoadLibrary(dir string) (*Library, error) {
	lib := &Library{classes: make(map[string]*vm.ClassFile), raw: make(map[string][]byte)}
	if dir == "" {
		return lib, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("library directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library path %s is not a directory", dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), "**/*.{jar,jclass}")
	if err != nil {
		return nil, fmt.Errorf("scanning library %s: %w", dir, err)
	}
	sort.Strings(matches)

	for _, rel := range matches {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		switch {
		case strings.HasSuffix(rel, config.LibraryFileExt):
			entries, err := archive.ReadClasses(path)
			if err != nil {
				return nil, err
			}
			names := make([]string, 0, len(entries))
			for name := range entries {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if err := lib.add(path, entries[name]); err != nil {
					return nil, err
				}
			}
		default:
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", path, err)
			}
			if err := lib.add(path, data); err != nil {
				return nil, err
			}
		}
	}
	return lib, nil
}

func (l *Library) add(origin string, data []byte) error {
	cf, err := vm.DecodeClassFile(data)
	if err != nil {
		return fmt.Errorf("library class in %s: %w", origin, err)
	}
	if _, exists := l.classes[cf.Name]; exists {
		return nil
	}
	l.classes[cf.Name] = cf
	l.raw[cf.Name] = data
	return nil
}

func (l *Library) Len() int { return len(l.classes) }

// Index adds every library class to the class index.
func (l *Library) Index(ix *analyzer.ClassIndex) {
	for _, cf := range l.classes {
		ix.AddLibrary(classInfo(cf))
	}
}

// Closure returns the encoded library classes reachable from roots,
// following each class file's references.
func (l *Library) Closure(roots []string) map[string][]byte {
	out := make(map[string][]byte)
	queue := append([]string(nil), roots...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, done := out[name]; done {
			continue
		}
		cf, ok := l.classes[name]
		if !ok {
			continue
		}
		out[name] = l.raw[name]
		queue = append(queue, cf.References...)
	}
	return out
}

func classInfo(cf *vm.ClassFile) *analyzer.ClassInfo {
	ci := analyzer.NewClassInfo(cf.Name)
	for _, f := range cf.Fields {
		ci.Fields[f.Name] = true
	}
	for i := range cf.Methods {
		m := &cf.Methods[i]
		ci.Methods[m.Name] = &analyzer.MethodInfo{
			Name:       m.Name,
			Static:     m.Static,
			Params:     len(m.Params),
			Descriptor: m.Descriptor(),
		}
	}
	return ci
}
