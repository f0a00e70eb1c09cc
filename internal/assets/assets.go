// Package assets persists remotely generated files to local storage and maps
// them to public URLs.
package assets

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Saver downloads remote files into a local directory tree and reports the
// public URL each file is reachable under.
type Saver struct {
	httpClient    *http.Client
	rootDir       string
	publicBaseURL string
	log           *zap.SugaredLogger
}

// NewSaver builds a Saver writing under rootDir. publicBaseURL is prepended
// to the folder/file path to form the public URL. A nil logger is replaced
// with a no-op logger.
func NewSaver(rootDir, publicBaseURL string, log *zap.SugaredLogger) *Saver {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Saver{
		httpClient:    &http.Client{Timeout: 120 * time.Second},
		rootDir:       rootDir,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		log:           log,
	}
}

// SavedFile reports where a downloaded file landed.
type SavedFile struct {
	LocalPath string `json:"localPath"`
	PublicURL string `json:"publicUrl"`
}

// DownloadAndSave fetches url and writes it to <rootDir>/<folder>/<fileName>.
func (s *Saver) DownloadAndSave(ctx context.Context, fileURL, fileName, folder string) (SavedFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return SavedFile{}, fmt.Errorf("assets: create download request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return SavedFile{}, fmt.Errorf("assets: download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return SavedFile{}, fmt.Errorf("assets: download returned %s", resp.Status)
	}

	dir := filepath.Join(s.rootDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return SavedFile{}, fmt.Errorf("assets: create folder: %w", err)
	}

	localPath := filepath.Join(dir, fileName)
	f, err := os.Create(localPath)
	if err != nil {
		return SavedFile{}, fmt.Errorf("assets: create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return SavedFile{}, fmt.Errorf("assets: write file: %w", err)
	}

	saved := SavedFile{
		LocalPath: localPath,
		PublicURL: fmt.Sprintf("%s/%s/%s", s.publicBaseURL, folder, fileName),
	}
	s.log.Infow("saved generated file", "path", localPath, "url", saved.PublicURL)
	return saved, nil
}

const fileNameAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateFileName produces a collision-resistant name like
// "image-2026-01-02T15-04-05Z-x7k2pq.png".
func GenerateFileName(kind, ext string) string {
	stamp := strings.NewReplacer(":", "-", ".", "-").
		Replace(time.Now().UTC().Format(time.RFC3339))
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = fileNameAlphabet[rand.Intn(len(fileNameAlphabet))]
	}
	return fmt.Sprintf("%s-%s-%s.%s", kind, stamp, suffix, ext)
}
