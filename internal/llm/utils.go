package llm

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/tactic-tuner/constants"
)

// LoadImage reads an image page from disk for inline upload.
func LoadImage(path string) (Image, error) {
	if constants.MapExtToFormat(filepath.Ext(path)) != constants.IMAGE {
		return Image{}, fmt.Errorf("unsupported image format: %s", filepath.Ext(path))
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Image{}, err
	}
	ext := constants.NormalizeExt(filepath.Ext(path))
	mt := mime.TypeByExtension("." + ext)
	if mt == "" {
		mt = constants.MimeForExt(ext)
	}
	return Image{Path: path, MimeType: mt, Data: b}, nil
}

// LoadImages reads every page, failing on the first unreadable one.
func LoadImages(paths []string) ([]Image, error) {
	out := make([]Image, 0, len(paths))
	for _, p := range paths {
		img, err := LoadImage(p)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", filepath.Base(p), err)
		}
		out = append(out, img)
	}
	return out, nil
}
