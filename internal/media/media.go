// Package media classifies uploaded files by declared type, extension and
// content.
package media

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const sniffLen = 512

// ErrUnsupported reports a file whose content does not match its role.
var ErrUnsupported = errors.New("unsupported media")

// wavTypes are the content types accepted for the audio upload.
var wavTypes = map[string]bool{
	"audio/wav":      true,
	"audio/x-wav":    true,
	"audio/wave":     true,
	"audio/vnd.wave": true,
}

// imageExts maps file extensions to MIME types for common image formats.
var imageExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
}

// IsWAVContentType reports whether a declared content type names WAV audio.
// Parameters such as "codecs" are ignored.
func IsWAVContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return wavTypes[mediaType]
}

// WAVContentTypes lists the accepted audio content types in sorted order.
func WAVContentTypes() []string {
	types := make([]string, 0, len(wavTypes))
	for t := range wavTypes {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// IsImageContentType reports whether a declared content type is image/*.
func IsImageContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}

// ContentTypeForFile guesses the declared type a browser would send for path.
func ContentTypeForFile(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".wav" || ext == ".wave" {
		return "audio/wav"
	}
	if t, ok := imageExts[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// DetectFile sniffs the content type of the file at path.
func DetectFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return http.DetectContentType(buf[:n]), nil
}

// CheckImage verifies the file at path sniffs as an image.
func CheckImage(path string) error {
	detected, err := DetectFile(path)
	if err != nil {
		return err
	}
	if !IsImageContentType(detected) {
		return fmt.Errorf("%w: image upload looks like %s", ErrUnsupported, detected)
	}
	return nil
}

// CheckWAV verifies the file at path carries a RIFF/WAVE header.
func CheckWAV(path string) error {
	detected, err := DetectFile(path)
	if err != nil {
		return err
	}
	if !IsWAVContentType(detected) {
		return fmt.Errorf("%w: audio upload is not a WAV file (looks like %s)", ErrUnsupported, detected)
	}
	return nil
}
