// Package admin holds the manual edits made to stored products before they
// are published.
package admin

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"sneakersync/internal/errx"
	"sneakersync/internal/model"
	"sneakersync/internal/repository"
)

var allowedExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// RunHistory lists recorded scrape runs.
type RunHistory interface {
	Recent(ctx context.Context, limit int) ([]model.RunSummary, error)
}

// Service backs the admin commands. Runs is nil when no run ledger is configured.
type Service struct {
	Products  repository.ProductRepository
	Runs      RunHistory
	UploadDir string
	Logger    zerolog.Logger
}

// RecentRuns returns the latest scrape runs, newest first.
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if s.Runs == nil {
		return nil, errx.Newf(errx.KindValidation, "runs", "no run ledger configured, set DATABASE_URL")
	}
	if limit <= 0 {
		limit = 20
	}
	return s.Runs.Recent(ctx, limit)
}

func (s *Service) List(ctx context.Context, brand string) ([]model.CanonicalProduct, error) {
	b, err := model.ParseBrand(brand)
	if err != nil {
		return nil, errx.New(errx.KindValidation, "list", err)
	}
	return s.Products.List(ctx, b)
}

func (s *Service) Show(ctx context.Context, id string) (*model.CanonicalProduct, error) {
	_, p, err := repository.Locate(ctx, s.Products, id)
	return p, err
}

// SetPrice updates the price in whichever brand partition holds id.
func (s *Service) SetPrice(ctx context.Context, id, price string) error {
	price = strings.TrimSpace(price)
	if price == "" {
		return errx.Newf(errx.KindValidation, "set price", "empty price")
	}
	brand, _, err := repository.Locate(ctx, s.Products, id)
	if err != nil {
		return err
	}
	if err := s.Products.SetPrice(ctx, brand, id, price); err != nil {
		return err
	}
	s.Logger.Info().Str("id", id).Str("brand", brand.String()).Str("price", price).Msg("price updated")
	return nil
}

// SetImage saves the upload under UploadDir and points image index at it.
// It returns the stored image path, e.g. /uploads/custom.png.
func (s *Service) SetImage(ctx context.Context, id string, index int, filename string, r io.Reader) (string, error) {
	name, err := SafeFilename(filename)
	if err != nil {
		return "", err
	}
	brand, p, err := repository.Locate(ctx, s.Products, id)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(p.Images) {
		return "", errx.Newf(errx.KindValidation, "set image", "index %d out of range (%d images)", index, len(p.Images))
	}

	if err := os.MkdirAll(s.UploadDir, 0o755); err != nil {
		return "", err
	}
	dst, err := os.Create(filepath.Join(s.UploadDir, name))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}

	path := "/uploads/" + name
	if err := s.Products.SetImage(ctx, brand, id, index, path); err != nil {
		return "", err
	}
	s.Logger.Info().Str("id", id).Int("index", index).Str("path", path).Msg("image replaced")
	return path, nil
}

// SafeFilename strips directories and unsafe characters and checks the
// extension is an accepted image type.
func SafeFilename(filename string) (string, error) {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.Trim(unsafeChars.ReplaceAllString(strings.ReplaceAll(name, " ", "_"), ""), "._")
	ext := strings.ToLower(filepath.Ext(name))
	if name == "" || !allowedExtensions[ext] {
		return "", errx.Newf(errx.KindValidation, "upload", "file %q is not an accepted image", filename)
	}
	return name, nil
}
