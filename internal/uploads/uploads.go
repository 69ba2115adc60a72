package uploads

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/storefronthq/storefront-backend/pkg/config"
	pkgerrors "github.com/storefronthq/storefront-backend/pkg/errors"
)

var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Service stores product images on local disk under one configured dir.
type Service struct {
	dir      string
	maxBytes int64
}

// NewService ensures the uploads directory exists and returns the store.
func NewService(cfg config.UploadsConfig) (*Service, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("uploads dir required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads dir: %w", err)
	}

	maxBytes := int64(cfg.MaxUploadMB) << 20
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Service{dir: cfg.Dir, maxBytes: maxBytes}, nil
}

// Dir returns the configured uploads directory.
func (s *Service) Dir() string {
	return s.dir
}

// Save writes the uploaded image under a unique name and returns the
// stored filename. The random prefix stops uploads from overwriting
// each other when two products share an image name.
func (s *Service) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	clean, err := SanitizeFilename(filename)
	if err != nil {
		return "", err
	}

	stored := fmt.Sprintf("%s_%s", uuid.NewString()[:8], clean)
	path := filepath.Join(s.dir, stored)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating upload file")
	}
	defer f.Close()

	// Read one byte past the cap to detect oversize payloads.
	written, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		_ = os.Remove(path)
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing upload file")
	}
	if written > s.maxBytes {
		_ = os.Remove(path)
		return "", pkgerrors.New(pkgerrors.CodeValidation, "uploaded file is too large")
	}

	return stored, nil
}

// Resolve maps a requested filename to its on-disk path, refusing
// anything that escapes the uploads directory.
func (s *Service) Resolve(filename string) (string, error) {
	clean, err := SanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	if clean != filename {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "file not found")
	}

	path := filepath.Join(s.dir, clean)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "file not found")
	}
	return path, nil
}

// SanitizeFilename reduces a client-supplied name to a safe base name
// with an allowed image extension.
func SanitizeFilename(name string) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == ".." || strings.ContainsAny(base, `/\`) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid filename")
	}

	base = unsafeChars.ReplaceAllString(base, "_")

	ext := strings.ToLower(filepath.Ext(base))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported file type")
	}
	if strings.TrimSuffix(base, ext) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid filename")
	}

	return base, nil
}
