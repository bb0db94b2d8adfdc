package helper

import (
	"fmt"
	"os"
	"path/filepath"
)

// CreateFolder makes sure a folder exists
func CreateFolder(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", path, err)
	}
	return nil
}

// SaveUpload stages an uploaded document on disk so the extractor can read
// it. The file only needs to live until extraction finishes; callers may
// remove it afterwards.
func SaveUpload(dir, name string, data []byte) (string, error) {
	if err := CreateFolder(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save upload %s: %w", name, err)
	}
	return path, nil
}

// TruncatePreview bounds a chunk for display, marking the cut with an
// ellipsis.
func TruncatePreview(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	return text[:maxChars] + "..."
}
