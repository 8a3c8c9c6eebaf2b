package latex

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CollectTexFiles expands inputs into .tex files. Directories contribute
// their .tex files, recursively when recursive is set; files without a .tex
// extension are ignored.
func CollectTexFiles(inputs []string, recursive bool) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}
	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", input, err)
		}
		if !info.IsDir() {
			if isTexFile(input) {
				add(input)
			}
			continue
		}
		var found []string
		err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != input && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if isTexFile(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", input, err)
		}
		sort.Strings(found)
		for _, path := range found {
			add(path)
		}
	}
	return files, nil
}

func isTexFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".tex")
}
