package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/nguyentantai21042004/batch-transcriber/internal/domain"
)

// Discover lists allowlisted media files directly inside dir, sorted by name.
func Discover(dir string) ([]domain.InputFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	var files []domain.InputFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if !domain.IsSupported(path) {
			continue
		}
		if e.Type()&os.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		}
		files = append(files, domain.InputFile{
			Path:      path,
			Extension: strings.ToLower(filepath.Ext(path)),
		})
	}

	return files, nil
}

// cleanFilename keeps letters, digits, space, '-', '_' and '.', then
// replaces spaces with underscores.
func cleanFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	clean := strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
	if clean == "" || clean == "." || clean == ".." {
		return "transcript"
	}
	return clean
}

// ownerFunc reports which source file name produced the artifacts
// stored under base. ok is false when base has no artifacts.
type ownerFunc func(base string) (source string, ok bool)

// baseNames returns one output base name per file. A file keeps the name
// its existing artifacts were written under. Otherwise it takes the first
// free candidate: the cleaned stem, then the stem with the source
// extension appended, then a counter. Names whose artifacts belong to
// another source file are never reused.
func baseNames(files []domain.InputFile, owner ownerFunc) []string {
	if owner == nil {
		owner = func(string) (string, bool) { return "", false }
	}

	names := make([]string, len(files))
	used := make(map[string]bool, len(files))

	for i, f := range files {
		for k := 0; ; k++ {
			cand := candidateName(f, k)
			src, ok := owner(cand)
			if !ok {
				break
			}
			if src == f.Name() && !used[cand] {
				names[i] = cand
				used[cand] = true
				break
			}
		}
	}

	for i, f := range files {
		if names[i] != "" {
			continue
		}
		for k := 0; ; k++ {
			cand := candidateName(f, k)
			if used[cand] {
				continue
			}
			if src, ok := owner(cand); ok && src != "" && src != f.Name() {
				continue
			}
			names[i] = cand
			used[cand] = true
			break
		}
	}
	return names
}

func candidateName(f domain.InputFile, k int) string {
	name := cleanFilename(f.Stem())
	switch k {
	case 0:
		return name
	case 1:
		return name + "_" + strings.TrimPrefix(f.Extension, ".")
	default:
		return name + "_" + strings.TrimPrefix(f.Extension, ".") + "_" + strconv.Itoa(k)
	}
}
