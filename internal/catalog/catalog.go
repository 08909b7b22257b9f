// Package catalog lists and resolves printable files under the card root.
package catalog

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/zjrosen/vsdcard/internal/log"
)

// Extensions recognised as G-code when walking subdirectories.
var Extensions = []string{"gcode", "g", "gco"}

// Entry is one listed file.
type Entry struct {
	Path    string // relative to the catalog root, slash separated
	Size    int64
	ModTime time.Time
}

// Catalog answers read-only queries about the card root.
type Catalog struct {
	root string
	fold cases.Caser
}

// New creates a Catalog rooted at root. The root is cleaned and ~ expanded.
func New(root string) *Catalog {
	return &Catalog{
		root: ExpandPath(root),
		fold: cases.Fold(),
	}
}

// Root returns the absolute catalog root.
func (c *Catalog) Root() string {
	return c.root
}

// List returns the files under the root sorted case-insensitively.
// Non-recursive mode lists the top level, skipping dot-files and
// directories. Recursive mode walks the tree (following links) and keeps
// only files with a recognised extension.
func (c *Catalog) List(recursive bool) ([]Entry, error) {
	var (
		entries []Entry
		err     error
	)
	if recursive {
		entries, err = c.walk()
	} else {
		entries, err = c.top()
	}
	if err != nil {
		log.ErrorErr(log.CatCatalog, "listing failed", err, "root", c.root, "recursive", recursive)
		return nil, &CatalogError{Root: c.root, Err: err}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return c.key(entries[i].Path) < c.key(entries[j].Path)
	})
	return entries, nil
}

// Resolve maps a requested name to an absolute path. A leading slash is
// ignored. Exact matches win over case-insensitive ones.
func (c *Catalog) Resolve(name string, recursive bool) (string, error) {
	name = strings.TrimPrefix(name, "/")
	entries, err := c.List(recursive)
	if err != nil {
		return "", err
	}

	want := c.key(name)
	match := ""
	for _, e := range entries {
		if e.Path == name {
			match = e.Path
			break
		}
		if match == "" && c.key(e.Path) == want {
			match = e.Path
		}
	}
	if match == "" {
		log.Debug(log.CatCatalog, "file not found", "name", name)
		return "", &NotFoundError{Name: name}
	}
	return filepath.Join(c.root, filepath.FromSlash(match)), nil
}

func (c *Catalog) key(p string) string {
	return c.fold.String(norm.NFC.String(p))
}

func (c *Catalog) top() ([]Entry, error) {
	dirents, err := os.ReadDir(c.root)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if strings.HasPrefix(d.Name(), ".") {
			continue
		}
		// Stat follows symlinks so linked files are listed.
		info, err := os.Stat(filepath.Join(c.root, d.Name()))
		if err != nil {
			return nil, err
		}
		if !info.Mode().IsRegular() {
			continue
		}
		entries = append(entries, Entry{Path: d.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return entries, nil
}

func (c *Catalog) walk() ([]Entry, error) {
	var entries []Entry
	visited := make(map[string]bool)
	err := c.walkDir(c.root, "", visited, &entries)
	return entries, err
}

// walkDir descends into dir, following symlinked directories once per
// resolved target to avoid cycles.
func (c *Catalog) walkDir(dir, rel string, visited map[string]bool, out *[]Entry) error {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return err
	}
	if visited[real] {
		return nil
	}
	visited[real] = true

	dirents, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, d := range dirents {
		full := filepath.Join(dir, d.Name())
		relPath := d.Name()
		if rel != "" {
			relPath = rel + "/" + d.Name()
		}

		info, err := os.Stat(full)
		if err != nil {
			if d.Type()&fs.ModeSymlink != 0 {
				log.Warn(log.CatCatalog, "skipping dangling link", "path", full)
				continue
			}
			return err
		}
		if info.IsDir() {
			if err := c.walkDir(full, relPath, visited, out); err != nil {
				return err
			}
			continue
		}
		if !info.Mode().IsRegular() || !hasExtension(d.Name()) {
			continue
		}
		*out = append(*out, Entry{Path: relPath, Size: info.Size(), ModTime: info.ModTime()})
	}
	return nil
}

func hasExtension(name string) bool {
	i := strings.LastIndexByte(name, '.')
	ext := name[i+1:]
	for _, valid := range Extensions {
		if ext == valid {
			return true
		}
	}
	return false
}

// ExpandPath expands a leading ~ and cleans the result.
func ExpandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return filepath.Clean(p)
}
