package assets

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestDownloadAndSave(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake image bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	saver := NewSaver(dir, "http://localhost:8080/", nil)

	saved, err := saver.DownloadAndSave(t.Context(), srv.URL, "fox.png", "images")
	if err != nil {
		t.Fatalf("DownloadAndSave error: %v", err)
	}

	wantPath := filepath.Join(dir, "images", "fox.png")
	if saved.LocalPath != wantPath {
		t.Errorf("LocalPath = %q, want %q", saved.LocalPath, wantPath)
	}
	if saved.PublicURL != "http://localhost:8080/images/fox.png" {
		t.Errorf("PublicURL = %q", saved.PublicURL)
	}

	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "fake image bytes" {
		t.Errorf("saved content = %q", data)
	}
}

func TestDownloadAndSaveRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	saver := NewSaver(t.TempDir(), "http://localhost:8080", nil)
	_, err := saver.DownloadAndSave(t.Context(), srv.URL, "fox.png", "images")
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("err = %v, want status error", err)
	}
}

func TestGenerateFileName(t *testing.T) {
	re := regexp.MustCompile(`^image-\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}Z-[a-z0-9]{6}\.png$`)

	name := GenerateFileName("image", "png")
	if !re.MatchString(name) {
		t.Errorf("GenerateFileName = %q, does not match expected shape", name)
	}

	// Random suffix keeps names from colliding within one second.
	if GenerateFileName("image", "png") == GenerateFileName("image", "png") {
		t.Error("two generated names collided")
	}
}
