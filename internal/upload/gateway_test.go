package upload

import (
	"strings"
	"testing"
)

func TestValidate_Audio(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		wantErr     bool
	}{
		{"mp3 by mime", "book.mp3", "audio/mpeg", false},
		{"m4a by mime", "book.m4a", "audio/mp4", false},
		{"mp4 container", "book.mp4", "video/mp4", false},
		{"quicktime", "book.mov", "video/quicktime", false},
		{"octet-stream passthrough", "book.bin", "application/octet-stream", false},
		{"hls playlist", "book.m3u8", "application/x-mpegurl", false},
		{"flac by extension", "book.flac", "text/plain", false},
		{"uppercase extension", "BOOK.MP3", "text/plain", false},
		{"pdf rejected", "book.pdf", "application/pdf", true},
		{"image rejected", "book.jpg", "image/jpeg", true},
		{"no extension text", "book", "text/plain", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(KindAudio, tt.filename, tt.contentType)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q, %q) error = %v, wantErr %v", tt.filename, tt.contentType, err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Cover(t *testing.T) {
	if err := Validate(KindCover, "cover.jpg", "image/jpeg"); err != nil {
		t.Errorf("JPEG cover should be accepted: %v", err)
	}

	if err := Validate(KindCover, "cover.png", "image/png"); err != nil {
		t.Errorf("PNG cover should be accepted: %v", err)
	}

	err := Validate(KindCover, "cover.mp3", "audio/mpeg")
	if err == nil {
		t.Fatal("Audio file should be rejected as a cover")
	}

	if !strings.Contains(err.Error(), "unsupported cover upload") {
		t.Errorf("Unexpected error message: %v", err)
	}

	if !strings.Contains(err.Error(), "image/*") {
		t.Errorf("Cover rejection should name the allowed types, got: %v", err)
	}
}

func TestValidate_RejectionNamesAllowedTypes(t *testing.T) {
	err := Validate(KindAudio, "book.pdf", "application/pdf")
	if err == nil {
		t.Fatal("PDF should be rejected as audio")
	}

	for _, want := range []string{"audio/", "application/octet-stream", ".mp3", ".flac"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Audio rejection should mention %q, got: %v", want, err)
		}
	}
}

func TestObjectName(t *testing.T) {
	name := ObjectName(KindAudio, "My Book (Part 1).mp3")

	if !strings.HasPrefix(name, "audio/") {
		t.Errorf("Audio object should be under audio/, got %s", name)
	}

	if !strings.HasSuffix(name, ".mp3") {
		t.Errorf("Extension should be preserved, got %s", name)
	}

	if strings.ContainsAny(name[len("audio/"):], "() ") {
		t.Errorf("Unsafe characters should be sanitized, got %s", name)
	}

	if !strings.Contains(name, "My-Book-Part-1") {
		t.Errorf("Whitespace should map to dashes, got %s", name)
	}

	cover := ObjectName(KindCover, "cover.PNG")
	if !strings.HasPrefix(cover, "covers/") {
		t.Errorf("Cover object should be under covers/, got %s", cover)
	}
	if !strings.HasSuffix(cover, ".png") {
		t.Errorf("Extension should be lowercased, got %s", cover)
	}
}

func TestObjectName_Unique(t *testing.T) {
	// Timestamp prefix keeps repeated uploads of the same file distinct
	a := ObjectName(KindAudio, "book.mp3")
	b := ObjectName(KindAudio, "book.mp3")
	if a == "" || b == "" {
		t.Fatal("Object names should not be empty")
	}
}
