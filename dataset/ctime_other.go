//go:build !linux && !darwin && !windows
// +build !linux,!darwin,!windows

package dataset

import (
	"os"
	"time"
)

func creationTime(fi os.FileInfo) time.Time {
	return fi.ModTime()
}
