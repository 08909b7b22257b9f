//go:build linux

package filecache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

const sysBlockDir = "/sys/dev/block"

// deviceKey identifies the block device backing path as "major:minor".
func deviceKey(path string) (string, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	dev := uint64(st.Dev) //nolint:unconvert // Dev is uint32 on some architectures
	return fmt.Sprintf("%d:%d", unix.Major(dev), unix.Minor(dev)), nil
}

// detectRemovable follows the device mapping of path to its whole-disk node
// in sysfs and reads the removable flag. Devices without a sysfs node
// (tmpfs, overlay, network mounts) count as fixed.
func detectRemovable(ctx context.Context, path string) (bool, error) {
	key, err := deviceKey(path)
	if err != nil {
		return false, err
	}
	return removableFromSysfs(sysBlockDir, key)
}

func removableFromSysfs(root, key string) (bool, error) {
	node, err := filepath.EvalSymlinks(filepath.Join(root, key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	// Partitions carry a "partition" attribute; the flag lives on the parent disk.
	if _, err := os.Stat(filepath.Join(node, "partition")); err == nil {
		node = filepath.Dir(node)
	}
	data, err := os.ReadFile(filepath.Join(node, "removable"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return strings.TrimSpace(string(data)) == "1", nil
}
