package utils

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/disintegration/imaging"
)

const (
	// Base directory for storing uploaded files
	UploadBaseDir = "uploads"
	// Base URL for serving files
	UploadBaseURL = "/uploads"
	// Logos are stored as square PNGs of this size
	LogoSize = 512
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// CleanFilename removes any potentially dangerous characters from the filename
func CleanFilename(filename string) string {
	filename = filepath.Base(filename)
	return unsafeFilenameChars.ReplaceAllString(filename, "")
}

// ProcessLogo decodes an uploaded image and crops it to a LogoSize square PNG
func ProcessLogo(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %v", err)
	}

	logo := imaging.Fill(img, LogoSize, LogoSize, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, logo, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %v", err)
	}
	return buf.Bytes(), nil
}

// SaveUpload writes data under UploadBaseDir/subdir and returns its public URL
func SaveUpload(subdir, filename string, data []byte) (string, error) {
	filename = CleanFilename(filename)
	dir := filepath.Join(UploadBaseDir, subdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %v", err)
	}
	return fmt.Sprintf("%s/%s/%s", UploadBaseURL, subdir, filename), nil
}
