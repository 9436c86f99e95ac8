package services

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

var audioExtensions = map[string]string{
	"audio/webm":   ".webm",
	"audio/ogg":    ".ogg",
	"audio/mpeg":   ".mp3",
	"audio/mp3":    ".mp3",
	"audio/mp4":    ".m4a",
	"audio/x-m4a":  ".m4a",
	"audio/wav":    ".wav",
	"audio/x-wav":  ".wav",
	"audio/wave":   ".wav",
	"audio/flac":   ".flac",
	"audio/x-flac": ".flac",
	"video/webm":   ".webm",
	"video/mp4":    ".mp4",
}

// AudioFilename returns a file name whose extension matches mimeType. Speech to
// text APIs detect the container from the extension of the uploaded file.
func AudioFilename(mimeType string) string {
	mediaType := baseMediaType(mimeType)

	if ext, ok := audioExtensions[mediaType]; ok {
		return "audio" + ext
	}

	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return "audio" + exts[0]
	}

	return "audio.webm"
}

// ResolveMimeType picks the MIME type of an uploaded audio file. The declared
// type wins unless it is missing or generic; then the file extension and
// finally the content are used.
func ResolveMimeType(declared, filename string, data []byte) string {
	mediaType := baseMediaType(declared)
	if mediaType != "" && mediaType != "application/octet-stream" {
		return mediaType
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if byExt := canonicalType(ext); byExt != "" {
		return byExt
	}
	if byExt := baseMediaType(mime.TypeByExtension(ext)); byExt != "" {
		return byExt
	}

	return baseMediaType(http.DetectContentType(data))
}

func canonicalType(ext string) string {
	switch ext {
	case ".webm":
		return "audio/webm"
	case ".ogg":
		return "audio/ogg"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	}
	return ""
}

func baseMediaType(value string) string {
	if value == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(value))
	}
	return mediaType
}
