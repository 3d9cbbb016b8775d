package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

var ErrDigestMismatch = errors.New("checkpoint digest mismatch")

type FetcherConfig struct {
	URL    string
	Path   string
	SHA256 string // optional hex digest; empty trusts any cached file

	HTTPClient *http.Client
	// Progress, when set, returns a writer that receives the downloaded bytes.
	// size is -1 when the server does not report a length.
	Progress func(size int64) io.Writer
}

// Fetcher downloads a model checkpoint once and reuses the cached copy afterwards.
type Fetcher struct {
	config FetcherConfig
	logger *zap.Logger
}

type Result struct {
	Path       string
	SHA256     string
	Downloaded bool
}

func NewFetcher(config FetcherConfig, logger *zap.Logger) (*Fetcher, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("checkpoint URL is required")
	}
	if config.Path == "" {
		return nil, fmt.Errorf("checkpoint path is required")
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	config.SHA256 = strings.ToLower(strings.TrimSpace(config.SHA256))
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{config: config, logger: logger}, nil
}

// Fetch makes sure the checkpoint is present at the configured path.
// A cached file whose digest matches is left alone.
func (f *Fetcher) Fetch(ctx context.Context) (Result, error) {
	if digest, ok := f.cached(); ok {
		f.logger.Info("checkpoint already cached", zap.String("path", f.config.Path))
		return Result{Path: f.config.Path, SHA256: digest}, nil
	}

	if err := os.MkdirAll(filepath.Dir(f.config.Path), 0755); err != nil {
		return Result{}, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	f.logger.Info("downloading checkpoint", zap.String("url", f.config.URL), zap.String("path", f.config.Path))
	digest, err := f.download(ctx)
	if err != nil {
		return Result{}, err
	}

	return Result{Path: f.config.Path, SHA256: digest, Downloaded: true}, nil
}

func (f *Fetcher) cached() (string, bool) {
	info, err := os.Stat(f.config.Path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return "", false
	}

	digest, err := fileDigest(f.config.Path)
	if err != nil {
		return "", false
	}
	if f.config.SHA256 != "" && digest != f.config.SHA256 {
		f.logger.Warn("cached checkpoint digest mismatch, downloading again",
			zap.String("want", f.config.SHA256), zap.String("got", digest))
		return "", false
	}
	return digest, true
}

func (f *Fetcher) download(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.config.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.config.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download checkpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download checkpoint: unexpected status %s", resp.Status)
	}

	// Write next to the target and rename, so an interrupted download never looks cached.
	tmp, err := os.CreateTemp(filepath.Dir(f.config.Path), ".checkpoint-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	hash := sha256.New()
	writers := []io.Writer{tmp, hash}
	if f.config.Progress != nil {
		writers = append(writers, f.config.Progress(resp.ContentLength))
	}

	if _, err := io.Copy(io.MultiWriter(writers...), resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write checkpoint: %w", err)
	}

	digest := hex.EncodeToString(hash.Sum(nil))
	if f.config.SHA256 != "" && digest != f.config.SHA256 {
		return "", fmt.Errorf("%w: want %s, got %s", ErrDigestMismatch, f.config.SHA256, digest)
	}

	if err := os.Rename(tmp.Name(), f.config.Path); err != nil {
		return "", fmt.Errorf("failed to move checkpoint into place: %w", err)
	}
	return digest, nil
}

func fileDigest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
