// Package evidence fingerprints files a run leaves behind, such as the
// final screenshots, so a manifest can prove which artifact it refers to.
package evidence

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// Artifact is a file produced during a run.
type Artifact struct {
	Label  string `yaml:"label"  json:"label"`
	Path   string `yaml:"path"   json:"path"`
	SHA256 string `yaml:"sha256" json:"sha256"`
	Size   int64  `yaml:"size"   json:"size"`
}

// Attach fingerprints the file at path.
func Attach(label, path string) (*Artifact, error) {
	hash, size, err := HashFile(path)
	if err != nil {
		return nil, fmt.Errorf("hash artifact: %w", err)
	}
	return &Artifact{
		Label:  label,
		Path:   path,
		SHA256: hash,
		Size:   size,
	}, nil
}

// HashFile computes SHA256 hash and file size.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), size, nil
}
