package upload

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/umedia/cdn-service/internal/cdn"
	"github.com/umedia/cdn-service/internal/response"
	"github.com/umedia/cdn-service/internal/tenant"
)

// Handler holds the HTTP handler for the upload endpoint.
type Handler struct {
	svc *Service
}

// NewHandler creates a new upload Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// uploadResponse is the success body, kept flat for client compatibility.
type uploadResponse struct {
	Status bool   `json:"status" example:"true"`
	URL    string `json:"url"    example:"https://cdn.example/svc-a/svc-a/2026/photo/20260830_104501_0b2e7c1a-9f3d-4d6a-8f21-3c5d9b7e4a10.jpg"`
	Size   int    `json:"size"   example:"204800"`
	File   string `json:"file"   example:"20260830_104501_0b2e7c1a-9f3d-4d6a-8f21-3c5d9b7e4a10.jpg"`
}

// Upload godoc
//
//	@Summary		Upload an asset
//	@Description	Accepts one file for the given tenant and category. Images (jpg/jpeg/png) are recompressed to the configured size budget and stored as JPEG; other files are stored byte-for-byte.
//	@Tags			upload
//	@Accept			mpfd
//	@Produce		json
//	@Param			service		path		string	true	"Tenant id"
//	@Param			category	path		string	true	"Category label"
//	@Param			X-API-KEY	header		string	true	"Per-tenant API key"
//	@Param			file		formData	file	true	"File to upload"
//	@Success		200			{object}	uploadResponse
//	@Failure		400			{object}	response.Envelope
//	@Failure		403			{object}	response.Envelope
//	@Failure		500			{object}	response.Envelope
//	@Router			/upload/{service}/{category} [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "file field required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.InternalError(w, "failed to read upload")
		return
	}

	asset, err := h.svc.Store(r.Context(), Request{
		TenantID: chi.URLParam(r, "service"),
		Category: chi.URLParam(r, "category"),
		APIKey:   r.Header.Get("X-API-KEY"),
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, uploadResponse{
		Status: true,
		URL:    asset.URL,
		Size:   asset.Size,
		File:   asset.Filename,
	})
}

// writeError maps service errors onto HTTP responses. Unknown-tenant and
// wrong-key failures share one response body so callers cannot enumerate
// valid tenant ids.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tenant.ErrMissingAPIKey):
		response.Forbidden(w, "API key required")
	case errors.Is(err, tenant.ErrUnknownTenant), errors.Is(err, tenant.ErrInvalidAPIKey):
		response.Forbidden(w, "invalid service or API key")
	case errors.Is(err, tenant.ErrInvalidCategory):
		response.BadRequest(w, "invalid category")
	case errors.Is(err, cdn.ErrInvalidSegment):
		response.BadRequest(w, "invalid folder name")
	case errors.Is(err, tenant.ErrNoBaseURL):
		response.InternalError(w, "CDN URL not configured")
	default:
		response.InternalError(w, "internal server error")
	}
}
