package assets

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler validates image uploads before they are handed to the CDN.
type Handler struct {
	logger *slog.Logger
	rbac   rbac.Middleware
}

func NewHandler(logger *slog.Logger, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, rbac: mw}
}

// MountRoutes registers the upload validation route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermItemsEdit))
		r.Post("/validate", h.validate)
	})
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxImageBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "expected a multipart upload")
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "missing image field")
		return
	}
	defer file.Close()

	info, err := ValidateImage(file)
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, info)
	case errors.Is(err, ErrTooLarge), errors.Is(err, ErrUnsupportedType),
		errors.Is(err, ErrBadDimensions), errors.Is(err, ErrNotAnImage):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("validate upload", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
