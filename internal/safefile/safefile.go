// Package safefile provides file reads that reject symlinks and enforce
// size limits. Config files and report artifacts go through these helpers
// instead of os.ReadFile.
package safefile

import (
	"fmt"
	"os"
)

// ReadFile reads path after verifying it is not a symbolic link. The
// check uses Lstat so it is not followed through the link.
func ReadFile(path string) ([]byte, error) {
	if _, err := lstatNoSymlink(path); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// ReadFileMax reads path after verifying it is not a symlink and that
// the file does not exceed maxBytes.
func ReadFileMax(path string, maxBytes int64) ([]byte, error) {
	info, err := lstatNoSymlink(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxBytes {
		return nil, fmt.Errorf("%s is too large (%d bytes, max %d)", path, info.Size(), maxBytes)
	}
	return os.ReadFile(path)
}

func lstatNoSymlink(path string) (os.FileInfo, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("%s is a symbolic link (rejected)", path)
	}
	return info, nil
}
