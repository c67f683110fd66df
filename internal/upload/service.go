// Package upload implements the asset ingestion flow: authenticate the
// tenant, validate the category, re-encode the image when possible, and
// persist the bytes under a unique tenant-scoped path.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/umedia/cdn-service/internal/cdn"
	"github.com/umedia/cdn-service/internal/imaging"
	"github.com/umedia/cdn-service/internal/storage"
	"github.com/umedia/cdn-service/internal/tenant"
)

// Request carries one inbound upload. Filename is only used as an extension
// hint; the stored name is always generated.
type Request struct {
	TenantID string
	Category string
	APIKey   string
	Filename string
	Data     []byte
}

// StoredAsset describes a successfully persisted upload.
type StoredAsset struct {
	TenantID string
	Year     string
	Category string
	Filename string
	Size     int
	Path     string
	URL      string
}

// Service wires the tenant registry, encoder, path allocator and disk store
// into the upload flow.
type Service struct {
	registry  *tenant.Registry
	encoder   *imaging.Encoder
	allocator *cdn.Allocator
	disk      *storage.Disk

	// sem bounds concurrent encodes so a burst of large images cannot
	// starve request handling. Encoding is CPU-bound.
	sem chan struct{}

	now func() time.Time
}

// NewService creates the upload Service. workers bounds concurrent image
// encodes; values below 1 disable the bound.
func NewService(reg *tenant.Registry, enc *imaging.Encoder, alloc *cdn.Allocator, disk *storage.Disk, workers int) *Service {
	s := &Service{
		registry:  reg,
		encoder:   enc,
		allocator: alloc,
		disk:      disk,
		now:       time.Now,
	}
	if workers > 0 {
		s.sem = make(chan struct{}, workers)
	}
	return s
}

// Store runs the full upload flow and returns the stored asset metadata.
//
// Validation runs in a fixed, observable order, and the first failure wins:
// credential presence, tenant validity, credential match, category
// whitelist, segment sanitization. Nothing touches the filesystem until all
// five pass.
func (s *Service) Store(ctx context.Context, req Request) (*StoredAsset, error) {
	t, err := s.registry.Authenticate(req.TenantID, req.APIKey)
	if err != nil {
		return nil, err
	}
	if !t.AllowsCategory(req.Category) {
		return nil, fmt.Errorf("category %q: %w", req.Category, tenant.ErrInvalidCategory)
	}
	if !cdn.ValidSegment(req.TenantID) || !cdn.ValidSegment(req.Category) {
		return nil, cdn.ErrInvalidSegment
	}

	data := req.Data
	ext := cdn.FileExt(req.Filename)
	if imaging.CanReencode(ext) {
		encoded, err := s.encode(data)
		switch {
		case errors.Is(err, imaging.ErrUndecodable):
			// Extension lied about the content. Store the raw bytes
			// unmodified rather than failing the upload.
			log.Printf("upload: %s/%s: %v, storing original bytes", req.TenantID, req.Category, err)
		case err != nil:
			return nil, fmt.Errorf("re-encode image: %w", err)
		default:
			data = encoded
			ext = imaging.OutputExt
		}
	}

	now := s.now()
	placement, err := s.allocator.Allocate(t, req.Category, ext, now)
	if err != nil {
		return nil, err
	}

	if err := s.disk.EnsureDir(placement.Dir); err != nil {
		return nil, err
	}
	if err := s.disk.WriteFile(ctx, placement.Path, data); err != nil {
		return nil, err
	}

	return &StoredAsset{
		TenantID: req.TenantID,
		Year:     now.Format("2006"),
		Category: req.Category,
		Filename: placement.Filename,
		Size:     len(data),
		Path:     placement.Path,
		URL:      placement.URL,
	}, nil
}

func (s *Service) encode(data []byte) ([]byte, error) {
	if s.sem != nil {
		s.sem <- struct{}{}
		defer func() { <-s.sem }()
	}
	return s.encoder.Encode(data)
}
