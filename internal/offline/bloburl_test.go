package offline_test

import (
	"os"
	"strings"
	"testing"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/offline"
)

func TestFileBlobURLProvider(t *testing.T) {
	t.Parallel()

	t.Run("materializes and revokes a blob", func(t *testing.T) {
		t.Parallel()
		p, err := offline.NewFileBlobURLProvider(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileBlobURLProvider() error = %v", err)
		}

		url, err := p.ViewableURL("ticket.pdf", []byte("pdf bytes"))
		if err != nil {
			t.Fatalf("ViewableURL() error = %v", err)
		}
		if !strings.HasPrefix(url, "file://") {
			t.Fatalf("url = %q, want file:// prefix", url)
		}

		path := strings.TrimPrefix(url, "file://")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("reading backing file: %v", err)
		}
		if string(data) != "pdf bytes" {
			t.Errorf("backing file = %q, want %q", data, "pdf bytes")
		}

		if err := p.Revoke(url); err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("backing file still exists after revoke")
		}
	})

	t.Run("revoking twice is a no-op", func(t *testing.T) {
		t.Parallel()
		p, err := offline.NewFileBlobURLProvider(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileBlobURLProvider() error = %v", err)
		}

		url, err := p.ViewableURL("a.txt", []byte("x"))
		if err != nil {
			t.Fatalf("ViewableURL() error = %v", err)
		}
		if err := p.Revoke(url); err != nil {
			t.Fatalf("first Revoke() error = %v", err)
		}
		if err := p.Revoke(url); err != nil {
			t.Fatalf("second Revoke() error = %v", err)
		}
	})

	t.Run("rejects urls outside its directory", func(t *testing.T) {
		t.Parallel()
		p, err := offline.NewFileBlobURLProvider(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileBlobURLProvider() error = %v", err)
		}

		if err := p.Revoke("file:///etc/passwd"); err == nil {
			t.Fatal("expected error for foreign path")
		}
	})

	t.Run("sanitizes hostile names", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		p, err := offline.NewFileBlobURLProvider(dir)
		if err != nil {
			t.Fatalf("NewFileBlobURLProvider() error = %v", err)
		}

		url, err := p.ViewableURL("../../escape.txt", []byte("x"))
		if err != nil {
			t.Fatalf("ViewableURL() error = %v", err)
		}
		path := strings.TrimPrefix(url, "file://")
		if !strings.HasPrefix(path, dir) {
			t.Errorf("blob %q escaped directory %q", path, dir)
		}
	})
}
