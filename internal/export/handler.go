package export

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/accounting"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler streams XLSX reports.
type Handler struct {
	logger     *slog.Logger
	accounting *accounting.Service
	inventory  *inventory.Service
	rbac       rbac.Middleware
}

func NewHandler(logger *slog.Logger, acct *accounting.Service, inv *inventory.Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, accounting: acct, inventory: inv, rbac: mw}
}

// MountRoutes registers report download routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSubledgerView))
		r.Get("/subledger", h.subledger)
		r.Get("/outstanding", h.outstanding)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermGeneralLedgerView))
		r.Get("/ledger", h.ledger)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermInventoryView))
		r.Get("/stock-summary", h.stockSummary)
	})
}

func (h *Handler) subledger(w http.ResponseWriter, r *http.Request) {
	status := accounting.SubledgerStatus(r.URL.Query().Get("status"))
	entries, err := h.accounting.ListSubledger(r.Context(), status)
	if err != nil {
		h.fail(w, "subledger", err)
		return
	}
	wb, err := SubledgerWorkbook(entries)
	if err != nil {
		h.fail(w, "subledger", err)
		return
	}
	h.send(w, "subledger", wb)
}

func (h *Handler) outstanding(w http.ResponseWriter, r *http.Request) {
	balances, err := h.accounting.OutstandingBalances(r.Context())
	if err != nil {
		h.fail(w, "outstanding", err)
		return
	}
	wb, err := OutstandingWorkbook(balances)
	if err != nil {
		h.fail(w, "outstanding", err)
		return
	}
	h.send(w, "outstanding", wb)
}

func (h *Handler) ledger(w http.ResponseWriter, r *http.Request) {
	balances, err := h.accounting.LedgerBalances(r.Context())
	if err != nil {
		h.fail(w, "ledger", err)
		return
	}
	wb, err := LedgerWorkbook(balances)
	if err != nil {
		h.fail(w, "ledger", err)
		return
	}
	h.send(w, "ledger", wb)
}

func (h *Handler) stockSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := h.inventory.StockSummary(r.Context())
	if err != nil {
		h.fail(w, "stock-summary", err)
		return
	}
	wb, err := StockSummaryWorkbook(rows)
	if err != nil {
		h.fail(w, "stock-summary", err)
		return
	}
	h.send(w, "stock-summary", wb)
}

func (h *Handler) send(w http.ResponseWriter, name string, wb *Workbook) {
	filename := fmt.Sprintf("%s-%s.xlsx", name, time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := wb.WriteTo(w); err != nil {
		h.logger.Error("stream workbook", slog.String("report", name), slog.Any("error", err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, name string, err error) {
	h.logger.Error("build report", slog.String("report", name), slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
