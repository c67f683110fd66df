package cdn

import (
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umedia/cdn-service/internal/tenant"
)

func testTenant() *tenant.Tenant {
	return &tenant.Tenant{
		ID:      "svc-a",
		APIKey:  "k1",
		BaseURL: "https://cdn.example/svc-a",
	}
}

func TestValidSegment(t *testing.T) {
	tests := []struct {
		segment string
		want    bool
	}{
		{"photo", true},
		{"svc-a", true},
		{"a_b-c9", true},
		{"2024", true},
		{"absensi-berkah", true},
		{"", false},
		{"__--", false},
		{"a/b", false},
		{"..", false},
		{"../etc", false},
		{"a b", false},
		{"a.b", false},
		{"a\\b", false},
		{"photo!", false},
		{".", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidSegment(tt.segment), "segment %q", tt.segment)
	}
}

func TestAllocate(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 45, 1, 0, time.UTC)
	a := NewAllocator("/srv/cdn")

	p, err := a.Allocate(testTenant(), "photo", "jpg", now)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/srv/cdn", "svc-a", "2026", "photo"), p.Dir)

	namePattern := regexp.MustCompile(
		`^20260830_104501_[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.jpg$`)
	assert.Regexp(t, namePattern, p.Filename)

	assert.Equal(t, filepath.Join(p.Dir, p.Filename), p.Path)
	assert.Equal(t, "https://cdn.example/svc-a/svc-a/2026/photo/"+p.Filename, p.URL)
}

func TestAllocateTrimsBaseURLSlash(t *testing.T) {
	tn := testTenant()
	tn.BaseURL = "https://cdn.example/svc-a/"
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	p, err := NewAllocator("/srv/cdn").Allocate(tn, "photo", "jpg", now)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/svc-a/svc-a/2026/photo/"+p.Filename, p.URL)
}

func TestAllocateRejectsBadSegments(t *testing.T) {
	a := NewAllocator("/srv/cdn")

	_, err := a.Allocate(testTenant(), "../photo", "jpg", time.Now())
	require.ErrorIs(t, err, ErrInvalidSegment)

	bad := testTenant()
	bad.ID = "svc/a"
	_, err = a.Allocate(bad, "photo", "jpg", time.Now())
	require.ErrorIs(t, err, ErrInvalidSegment)
}

func TestAllocateMissingBaseURL(t *testing.T) {
	tn := testTenant()
	tn.BaseURL = ""

	_, err := NewAllocator("/srv/cdn").Allocate(tn, "photo", "jpg", time.Now())
	require.ErrorIs(t, err, tenant.ErrNoBaseURL)
}

func TestAllocateNoCollisions(t *testing.T) {
	const n = 10000

	a := NewAllocator("/srv/cdn")
	now := time.Now() // one fixed instant for every allocation
	names := make([]string, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := a.Allocate(testTenant(), "photo", "jpg", now)
			if err == nil {
				names[i] = p.Filename
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for i, name := range names {
		require.NotEmpty(t, name, "allocation %d failed", i)
		_, dup := seen[name]
		require.False(t, dup, "duplicate filename %q", name)
		seen[name] = struct{}{}
	}
}

func TestFileExt(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"photo.jpg", "jpg"},
		{"photo.JPG", "jpg"},
		{"scan.PnG", "png"},
		{"archive.tar.gz", "gz"},
		{"report.pdf", "pdf"},
		{"noextension", "jpg"},
		{"trailingdot.", "jpg"},
		{".hidden", "hidden"},
		{"evil.jpg/../../passwd", "jpg"},
		{"space.j pg", "jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, FileExt(tt.filename))
		})
	}
}
