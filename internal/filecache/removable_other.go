//go:build !linux

package filecache

import (
	"context"
	"errors"
)

var errNoDeviceMapping = errors.New("removable media detection not supported on this platform")

func deviceKey(path string) (string, error) {
	return "", errNoDeviceMapping
}

// detectRemovable always reports fixed storage where no device mapping exists.
func detectRemovable(ctx context.Context, path string) (bool, error) {
	return false, nil
}
