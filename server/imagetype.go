package server

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

var ErrUnsupportedFormat = eris.New("unsupported image format")

// HEICMessage is returned to clients that upload HEIC/HEIF photos.
const HEICMessage = "I can't analyze HEIC/HEIF images (iPhone camera format). Please convert to JPEG or change your camera settings to 'Most Compatible' format and try again."

var extensionTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// DetectImageType sniffs the media type from the first bytes, falling back to the
// filename extension and then to JPEG. HEIC/HEIF content is rejected.
func DetectImageType(data []byte, filename string) (string, error) {
	header := data[:min(len(data), 12)]

	switch {
	case bytes.HasPrefix(header, []byte("\x89PNG")):
		return "image/png", nil
	case bytes.HasPrefix(header, []byte("\xff\xd8\xff")):
		return "image/jpeg", nil
	case bytes.Contains(header, []byte("ftyphei")), bytes.Contains(header, []byte("ftypmif1")):
		return "", ErrUnsupportedFormat
	case bytes.HasPrefix(header, []byte("GIF8")):
		return "image/gif", nil
	case bytes.HasPrefix(header, []byte("RIFF")) && bytes.Contains(header, []byte("WEBP")):
		return "image/webp", nil
	}

	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return t, nil
	}
	return "image/jpeg", nil
}
