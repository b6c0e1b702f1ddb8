package segment

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"drillcut/internal/fileutil"
	"drillcut/internal/services"
)

// Recording is one numbered source file.
type Recording struct {
	Index int
	Name  string
	Path  string
}

// Rejected is a source file whose name does not carry a recording index.
type Rejected struct {
	Name string
	Path string
	Err  error
}

// ParseIndex extracts the positive recording number from a file name such as
// "003.mp3".
func ParseIndex(name string) (int, error) {
	stem := strings.TrimSpace(fileutil.Stem(name))
	n, err := strconv.Atoi(stem)
	if err != nil {
		return 0, services.Wrap(services.ErrFormat, "split", "parse recording index",
			fmt.Sprintf("%q is not a numbered recording", filepath.Base(name)), err)
	}
	if n <= 0 {
		return 0, services.Wrap(services.ErrFormat, "split", "parse recording index",
			fmt.Sprintf("%q has non-positive index %d", filepath.Base(name), n), nil)
	}
	return n, nil
}

// Discover lists the recordings in dir with one of exts, ordered by index
// and then by name. Files whose stem is not a positive integer are returned
// separately, ordered by name.
func Discover(dir string, exts []string) ([]Recording, []Rejected, error) {
	files, err := fileutil.ListFiles(dir, exts)
	if err != nil {
		return nil, nil, fmt.Errorf("list recordings: %w", err)
	}
	recordings := make([]Recording, 0, len(files))
	var rejected []Rejected
	for _, path := range files {
		name := filepath.Base(path)
		n, err := ParseIndex(name)
		if err != nil {
			rejected = append(rejected, Rejected{Name: name, Path: path, Err: err})
			continue
		}
		recordings = append(recordings, Recording{Index: n, Name: name, Path: path})
	}
	sort.SliceStable(recordings, func(i, j int) bool {
		if recordings[i].Index != recordings[j].Index {
			return recordings[i].Index < recordings[j].Index
		}
		return recordings[i].Name < recordings[j].Name
	})
	return recordings, rejected, nil
}
