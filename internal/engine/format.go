package engine

import (
	"os"

	"github.com/funvibe/jot/internal/compiler"
	"github.com/funvibe/jot/internal/prettyprinter"
	"github.com/funvibe/jot/internal/transform"
)

// format reprints each source file in place. Problems are logged and leave
// the file untouched; they never stop the run.
func (r *run) format() {
	paths, err := compiler.SourceFiles(r.task.SourcePath)
	if err != nil {
		// Compile reports the same problem.
		return
	}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			r.logger.Warn("format skipped", "file", path, "err", err)
			continue
		}
		src, err := os.ReadFile(path)
		if err != nil {
			r.logger.Warn("format skipped", "file", path, "err", err)
			continue
		}
		out, err := prettyprinter.Format(string(src))
		if err != nil {
			r.logger.Warn("format skipped", "file", path, "err", err)
			continue
		}
		if out == string(src) {
			continue
		}
		if err := transform.WriteFileAtomic(path, []byte(out), info.Mode().Perm()); err != nil {
			r.logger.Warn("format not saved", "file", path, "err", err)
		}
	}
}
