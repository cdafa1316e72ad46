// Package photo decodes frame files into retrodetect photos.
package photo

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"retrodetect/pkg/retrodetect"
)

// DefaultExtensions lists the frame formats the decoders understand.
var DefaultExtensions = []string{".np", ".npz", ".npy", ".fits", ".fit", ".png", ".tif", ".tiff"}

// Load reads and decodes the frame file at path.
func Load(path string) (*retrodetect.Photo, error) {
	if isRaster(path) {
		img, err := loadRaster(path)
		if err != nil {
			return nil, err
		}
		return &retrodetect.Photo{Name: filepath.Base(path), Img: img}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Decode(data, filepath.Base(path))
}

// Decode decodes an in-memory frame file. name selects the format by its
// extension and becomes the photo's name.
func Decode(data []byte, name string) (*retrodetect.Photo, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".np":
		return ReadPickle(data, name)
	case ".npz":
		return ReadNPZ(data, name)
	case ".npy":
		img, err := ReadNPY(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return &retrodetect.Photo{Name: name, Img: img}, nil
	case ".fits", ".fit", ".fts":
		img, header, err := ReadFITS(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return &retrodetect.Photo{Name: name, Img: img, Meta: header}, nil
	case ".png", ".tif", ".tiff", ".jpg", ".jpeg":
		img, err := decodeRaster(data)
		if err != nil {
			return nil, err
		}
		return &retrodetect.Photo{Name: name, Img: img}, nil
	default:
		return nil, fmt.Errorf("unsupported frame format %q", ext)
	}
}

// HasExtension reports whether name ends in one of exts, ignoring case.
func HasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// ParseExtensions splits a comma separated extension list, adding missing
// leading dots.
func ParseExtensions(list string) []string {
	var exts []string
	for _, e := range strings.Split(list, ",") {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	return exts
}

func isRaster(name string) bool {
	return HasExtension(name, []string{".png", ".tif", ".tiff", ".jpg", ".jpeg"})
}
