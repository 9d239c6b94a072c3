package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes the audit trail query endpoint.
type Handler struct {
	logger *slog.Logger
	repo   RepositoryPort
	rbac   rbac.Middleware
}

func NewHandler(logger *slog.Logger, repo RepositoryPort, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, repo: repo, rbac: mw}
}

// MountRoutes registers the audit query route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAuditView))
		r.Get("/", h.list)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(w, r)
	if !ok {
		return
	}
	entries, err := h.repo.List(r.Context(), f)
	if err != nil {
		h.logger.Error("audit query failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func parseFilter(w http.ResponseWriter, r *http.Request) (Filter, bool) {
	q := r.URL.Query()
	var f Filter
	f.Action = q.Get("action")
	f.Entity = q.Get("entity")
	if v := q.Get("actor_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid actor_id")
			return Filter{}, false
		}
		f.ActorID = id
	}
	for name, dst := range map[string]*time.Time{"from": &f.From, "to": &f.To} {
		if v := q.Get(name); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+name+" timestamp, want RFC3339")
				return Filter{}, false
			}
			*dst = ts
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid limit")
			return Filter{}, false
		}
		f.Limit = n
	}
	return f, true
}
