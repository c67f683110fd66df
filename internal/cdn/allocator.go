// Package cdn derives storage paths and public URLs for uploaded assets.
//
// Layout: <root>/<tenant>/<year>/<category>/<YYYYMMDD>_<HHMMSS>_<uuid>.<ext>
// The public URL mirrors the same structure under the tenant's base URL.
// Timestamped filenames sort lexically by creation time within a directory;
// the embedded UUID makes collisions negligible regardless of clock
// resolution or concurrency.
package cdn

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/umedia/cdn-service/internal/tenant"
)

// ErrInvalidSegment is returned when a tenant id or category fails
// sanitization. Segment sanitization is the sole traversal guard: every
// path component between the root and the filename must pass it.
var ErrInvalidSegment = errors.New("invalid folder name")

// Placement describes where an asset lives on disk and on the public CDN.
type Placement struct {
	Dir      string // directory the file belongs in
	Filename string // generated unique filename
	Path     string // Dir joined with Filename
	URL      string // public URL for the asset
}

// Allocator composes storage paths under a fixed root directory.
type Allocator struct {
	root string
}

// NewAllocator creates an Allocator rooted at dir.
func NewAllocator(dir string) *Allocator {
	return &Allocator{root: dir}
}

// Allocate derives the directory, unique filename and public URL for one
// asset belonging to t. It does not touch the filesystem.
//
// Returns ErrInvalidSegment when the tenant id or category fails
// sanitization, and tenant.ErrNoBaseURL when the tenant has no public base
// URL configured (a deployment problem, not a bad request).
func (a *Allocator) Allocate(t *tenant.Tenant, category, ext string, now time.Time) (*Placement, error) {
	if !ValidSegment(t.ID) {
		return nil, fmt.Errorf("tenant id %q: %w", t.ID, ErrInvalidSegment)
	}
	if !ValidSegment(category) {
		return nil, fmt.Errorf("category %q: %w", category, ErrInvalidSegment)
	}
	if t.BaseURL == "" {
		return nil, tenant.ErrNoBaseURL
	}

	year := now.Format("2006")
	filename := fmt.Sprintf("%s_%s.%s", now.Format("20060102_150405"), uuid.NewString(), ext)

	dir := filepath.Join(a.root, t.ID, year, category)
	url := fmt.Sprintf("%s/%s/%s/%s/%s",
		strings.TrimRight(t.BaseURL, "/"), t.ID, year, category, filename)

	return &Placement{
		Dir:      dir,
		Filename: filename,
		Path:     filepath.Join(dir, filename),
		URL:      url,
	}, nil
}

// ValidSegment reports whether s is safe to use as a single path component.
// After removing underscores and hyphens, every remaining character must be
// a letter or digit and at least one character must remain. This rejects
// separators, dots, spaces and hence any traversal sequence.
func ValidSegment(s string) bool {
	rest := strings.NewReplacer("_", "", "-", "").Replace(s)
	if rest == "" {
		return false
	}
	for _, r := range rest {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// FileExt extracts the lowercased extension from an uploaded filename,
// defaulting to "jpg" when the name has no dot. Extensions that fail the
// segment character rules (anything beyond letters and digits) also fall
// back to "jpg" so a hostile filename can never smuggle path characters
// into the generated name.
func FileExt(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return "jpg"
	}
	ext := strings.ToLower(filename[i+1:])
	if ext == "" || !alphanumeric(ext) {
		return "jpg"
	}
	return ext
}

func alphanumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
