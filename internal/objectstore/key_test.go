package objectstore

import (
	"strings"
	"testing"
)

func TestNewKeyLayout(t *testing.T) {
	key := NewKey("report.pdf")
	if !strings.HasPrefix(key, "documents/") || !strings.HasSuffix(key, "-report.pdf") {
		t.Fatalf("unexpected key layout: %s", key)
	}
	if NewKey("report.pdf") == key {
		t.Fatalf("keys must be unique")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\cv.docx`, "cv.docx"},
		{"my   \"quoted\"\tfile.txt", "my quoted file.txt"},
		{"", "file"},
		{"..", "file"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPublicEndpoint(t *testing.T) {
	host, secure, ok := publicEndpoint("https://files.example.com/", false)
	if !ok || !secure || host != "files.example.com" {
		t.Fatalf("unexpected: %s %v %v", host, secure, ok)
	}
	if _, _, ok := publicEndpoint("  ", true); ok {
		t.Fatalf("blank public url should be ignored")
	}
	host, secure, ok = publicEndpoint("cdn.local:9000", true)
	if !ok || !secure || host != "cdn.local:9000" {
		t.Fatalf("unexpected: %s %v %v", host, secure, ok)
	}
}
