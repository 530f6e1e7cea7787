// Package fileinfo answers file metadata lookups for the UI, typically
// aimed at .blend files the user is working on.
package fileinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Info struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Ext       string    `json:"ext,omitempty"`
	SizeBytes int64     `json:"sizeBytes"`
	SizeHuman string    `json:"sizeHuman,omitempty"`
	ModTime   time.Time `json:"modTime"`
	IsDir     bool      `json:"isDir"`
}

// Stat looks up metadata for one path. Directories report no size; their
// on-disk size is meaningless to the UI.
func Stat(path string) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("stat %s: %w", path, err)
	}

	info := Info{
		Path:    path,
		Name:    fi.Name(),
		ModTime: fi.ModTime(),
		IsDir:   fi.IsDir(),
	}
	if !fi.IsDir() {
		info.Ext = filepath.Ext(path)
		info.SizeBytes = fi.Size()
		info.SizeHuman = HumanSize(fi.Size())
	}
	return info, nil
}

// sizeUnits runs up to EiB, which covers the int64 range: the loop in
// HumanSize can divide a positive int64 by 1024 at most six times
// before the quotient drops under 1024.
var sizeUnits = [...]string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// HumanSize formats a byte count with binary units, one decimal place
// above the bytes range.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %s", float64(n)/float64(div), sizeUnits[exp])
}
