package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Upload limits mirror what the backend enforces; checking locally
// avoids shipping megabytes just to get a 400 back.
const MaxUploadSize = 50 << 20 // 50 MiB

// allowedExtensions are the document types the backend can process.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".doc":  true,
	".txt":  true,
	".md":   true,
	".csv":  true,
}

// ValidateUpload checks that path points at a readable, supported,
// size-bounded document. Returns the cleaned absolute path.
func ValidateUpload(path string) (string, error) {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("files: invalid path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("files: cannot read %s: %w", absPath, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("files: %s is a directory", absPath)
	}

	ext := strings.ToLower(filepath.Ext(absPath))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("files: unsupported file type %q (supported: %s)", ext, supportedList())
	}

	if info.Size() > MaxUploadSize {
		return "", fmt.Errorf("files: %s is %d bytes, exceeds the %d byte limit", absPath, info.Size(), int64(MaxUploadSize))
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("files: %s is empty", absPath)
	}

	return absPath, nil
}

func supportedList() string {
	exts := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}
