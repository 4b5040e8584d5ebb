// Package archive packs class directories into .jar files and reads them back.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/funvibe/jot/internal/config"
)

// ClassName converts an archive or directory path "a/b/C.jclass" into "a.b.C".
func ClassName(rel string) string {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, config.ClassFileExt)
	return strings.ReplaceAll(rel, "/", ".")
}

// ClassPath converts "a.b.C" into the relative path "a/b/C.jclass".
func ClassPath(name string) string {
	return strings.ReplaceAll(name, ".", "/") + config.ClassFileExt
}

// WriteClasses writes encoded class files as a jar at outputPath.
// Entries are written in name order so identical inputs yield identical archives.
func WriteClasses(outputPath string, classes map[string][]byte) (err error) {
	zipFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create jar: %w", err)
	}
	defer func() {
		if closeErr := zipFile.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(outputPath)
		}
	}()

	zipWriter := zip.NewWriter(zipFile)
	defer func() {
		if closeErr := zipWriter.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		header := &zip.FileHeader{Name: ClassPath(name), Method: zip.Deflate}
		writer, createErr := zipWriter.CreateHeader(header)
		if createErr != nil {
			return fmt.Errorf("failed to create jar entry %s: %w", header.Name, createErr)
		}
		if _, writeErr := writer.Write(classes[name]); writeErr != nil {
			return fmt.Errorf("failed to write jar entry %s: %w", header.Name, writeErr)
		}
	}
	return nil
}

// ReadClasses returns every class file in a jar keyed by class name.
func ReadClasses(jarPath string) (map[string][]byte, error) {
	zipReader, err := zip.OpenReader(jarPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open jar %s: %w", jarPath, err)
	}
	defer zipReader.Close()

	classes := make(map[string][]byte)
	for _, file := range zipReader.File {
		if file.FileInfo().IsDir() || !strings.HasSuffix(file.Name, config.ClassFileExt) {
			continue
		}
		data, err := readEntry(file)
		if err != nil {
			return nil, fmt.Errorf("jar %s: %w", jarPath, err)
		}
		classes[ClassName(file.Name)] = data
	}
	return classes, nil
}

func readEntry(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry %s: %w", file.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %s: %w", file.Name, err)
	}
	return data, nil
}
