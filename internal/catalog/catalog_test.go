package catalog

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestList_TopLevelSortedAndFiltered(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.gcode"), "G28\n")
	writeFile(t, filepath.Join(root, "A.gcode"), "G28\nG1 X1\n")
	writeFile(t, filepath.Join(root, "notes.txt"), "x")
	writeFile(t, filepath.Join(root, ".hidden.gcode"), "G28\n")
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0755))

	entries, err := New(root).List(false)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Path)
	}
	// Top level keeps every visible regular file regardless of extension.
	require.Equal(t, []string{"A.gcode", "b.gcode", "notes.txt"}, names)
	require.Equal(t, int64(10), entries[0].Size)
}

func TestList_RecursiveFiltersExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.gco"), "G28\n")
	writeFile(t, filepath.Join(root, "sub", "Part.g"), "G28\n")
	writeFile(t, filepath.Join(root, "sub", "deep", "z.gcode"), "G28\n")
	writeFile(t, filepath.Join(root, "sub", "readme.md"), "#")

	entries, err := New(root).List(true)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Path)
	}
	require.Equal(t, []string{"sub/deep/z.gcode", "sub/Part.g", "top.gco"}, names)
}

func TestList_RecursiveFollowsLinksWithoutLooping(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "real", "a.gcode"), "G28\n")
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "linked")))
	require.NoError(t, os.Symlink(root, filepath.Join(root, "real", "loop")))

	entries, err := New(root).List(true)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestList_MissingRootIsCatalogError(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing")).List(false)
	var catErr *CatalogError
	require.ErrorAs(t, err, &catErr)
	require.True(t, os.IsNotExist(catErr.Unwrap()))
}

func TestResolve_ExactThenCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Benchy.gcode"), "G28\n")
	c := New(root)

	path, err := c.Resolve("Benchy.gcode", false)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(c.Root(), "Benchy.gcode"), path)

	path, err = c.Resolve("/benchy.GCODE", false)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(c.Root(), "Benchy.gcode"), path)
}

func TestResolve_PrefersExactOverFolded(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("needs a case-sensitive filesystem")
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "part.gcode"), "a\n")
	writeFile(t, filepath.Join(root, "PART.gcode"), "b\n")

	path, err := New(root).Resolve("part.gcode", false)
	require.NoError(t, err)
	require.Equal(t, "part.gcode", filepath.Base(path))
}

func TestResolve_NotFound(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.gcode"), "G28\n")

	_, err := New(root).Resolve("missing.gcode", false)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "missing.gcode", nf.Name)
}

func TestResolve_RecursiveSubdirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "jobs", "Cube.gcode"), "G28\n")

	_, err := New(root).Resolve("jobs/cube.gcode", false)
	require.Error(t, err)

	path, err := New(root).Resolve("jobs/cube.gcode", true)
	require.NoError(t, err)
	require.Equal(t, "Cube.gcode", filepath.Base(path))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "printer_data", "gcodes"), ExpandPath("~/printer_data/gcodes/"))
}
