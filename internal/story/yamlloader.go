package story

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LibraryFile is the top-level structure of a story library YAML file.
//
// Example:
//
//	library:
//	  name: "Bedtime Favourites"
//	stories:
//	  - title: "The Brave Little Turtle"
//	    reading_level: grade-1
//	    pages:
//	      - number: 1
//	        lines:
//	          - "Once upon a time there was a little turtle."
//	          - "The turtle lived near a big blue pond."
type LibraryFile struct {
	Library LibraryMeta `yaml:"library"`
	Stories []Story     `yaml:"stories"`
}

// LibraryMeta holds top-level metadata for a story library.
type LibraryMeta struct {
	// Name is the library's display name.
	Name string `yaml:"name"`

	// Description is a free-text summary of the library.
	Description string `yaml:"description"`
}

// LoadLibraryFile reads and parses a library YAML file from disk.
// Returns a descriptive error if the file cannot be opened or parsed.
func LoadLibraryFile(path string) (*LibraryFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("story: open library file %q: %w", path, err)
	}
	defer f.Close()

	lf, err := LoadLibraryFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("story: parse library file %q: %w", path, err)
	}
	return lf, nil
}

// LoadLibraryFromReader parses library YAML from an [io.Reader].
// The reader is consumed entirely; the caller is responsible for closing it.
func LoadLibraryFromReader(r io.Reader) (*LibraryFile, error) {
	var lf LibraryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&lf); err != nil {
		return nil, fmt.Errorf("story: decode library yaml: %w", err)
	}
	return &lf, nil
}

// ImportLibrary imports all stories from a parsed [LibraryFile] into store.
// Every story is validated before any is imported.
// Returns the number of stories successfully imported.
// An error from the store aborts the import and returns the count so far.
func ImportLibrary(ctx context.Context, store Store, library *LibraryFile) (int, error) {
	if library == nil {
		return 0, fmt.Errorf("story: library must not be nil")
	}
	for i, st := range library.Stories {
		if err := Validate(st); err != nil {
			return 0, fmt.Errorf("story: library %q: story[%d] (title %q): %w",
				library.Library.Name, i, st.Title, err)
		}
	}
	n, err := store.BulkImport(ctx, library.Stories)
	if err != nil {
		return n, fmt.Errorf("story: import library %q: %w", library.Library.Name, err)
	}
	return n, nil
}

// LoadDir loads every .yaml/.yml library file in dir (non-recursive) into
// store. Returns the total number of stories imported. The first bad file
// aborts the load.
func LoadDir(ctx context.Context, store Store, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("story: read library dir %q: %w", dir, err)
	}

	total := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		lf, err := LoadLibraryFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return total, err
		}
		n, err := ImportLibrary(ctx, store, lf)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
