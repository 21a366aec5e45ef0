package upload

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Kind selects the validation rules and storage prefix for an upload
type Kind string

const (
	KindAudio Kind = "audio"
	KindCover Kind = "cover"
)

// Audio uploads are matched by MIME type first, then by extension as a
// fallback for clients that send octet-stream.
var audioMimePrefixes = []string{
	"audio/",
	"video/mpeg",
	"video/mp4",
	"video/x-m4v",
	"video/quicktime",
	"application/octet-stream",
	"application/x-mpegurl",
	"application/vnd.apple.mpegurl",
}

var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".wav":  true,
	".aac":  true,
	".ogg":  true,
	".flac": true,
	".mpeg": true,
	".mp4":  true,
	".mov":  true,
	".m4v":  true,
}

var (
	whitespace  = regexp.MustCompile(`\s+`)
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// ErrUnsupportedType is returned when an upload fails validation. The
// message names the kind's allowed types so clients can tell what to
// send instead.
type ErrUnsupportedType struct {
	Kind        Kind
	ContentType string
	Filename    string
}

func (e *ErrUnsupportedType) Error() string {
	return fmt.Sprintf("unsupported %s upload: %s (%s); allowed: %s",
		e.Kind, e.Filename, e.ContentType, allowedTypes(e.Kind))
}

func allowedTypes(kind Kind) string {
	if kind == KindCover {
		return "image/*"
	}

	exts := make([]string, 0, len(audioExtensions))
	for ext := range audioExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	return strings.Join(audioMimePrefixes, ", ") + " or extensions " + strings.Join(exts, ", ")
}

// Validate checks an upload's content type and filename against the
// allow-list for its kind.
func Validate(kind Kind, filename, contentType string) error {
	switch kind {
	case KindAudio:
		for _, prefix := range audioMimePrefixes {
			if strings.HasPrefix(contentType, prefix) {
				return nil
			}
		}
		if audioExtensions[strings.ToLower(filepath.Ext(filename))] {
			return nil
		}
	case KindCover:
		if strings.HasPrefix(contentType, "image/") {
			return nil
		}
	}
	return &ErrUnsupportedType{Kind: kind, ContentType: contentType, Filename: filename}
}

// ObjectName builds a collision-resistant storage key from the original
// filename: a millisecond timestamp plus the sanitized base name, under
// the kind's prefix.
func ObjectName(kind Kind, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = whitespace.ReplaceAllString(base, "-")
	base = unsafeChars.ReplaceAllString(base, "")

	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), base, ext)

	switch kind {
	case KindCover:
		return "covers/" + name
	default:
		return "audio/" + name
	}
}
