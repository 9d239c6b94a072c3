package accounting

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/tenant"
)

// RebuildEnqueuer schedules an asynchronous subledger reconstruction.
type RebuildEnqueuer interface {
	EnqueueRebuild(ctx context.Context, organizationID int64) error
}

// RebuildEnqueuerFunc adapts a function to the RebuildEnqueuer interface.
type RebuildEnqueuerFunc func(ctx context.Context, organizationID int64) error

func (f RebuildEnqueuerFunc) EnqueueRebuild(ctx context.Context, organizationID int64) error {
	return f(ctx, organizationID)
}

// Handler wires HTTP endpoints for the accounting module.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
	rebuilds  RebuildEnqueuer
}

func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: mw, validator: validator.New()}
}

// WithRebuilds enables the subledger rebuild endpoint.
func (h *Handler) WithRebuilds(enq RebuildEnqueuer) *Handler {
	h.rebuilds = enq
	return h
}

// MountRoutes registers accounting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermJournalsView))
		r.Get("/accounts", h.listAccounts)
		r.Get("/journals", h.listJournals)
		r.Get("/journals/{id}", h.getJournal)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermJournalsPost))
		r.Post("/accounts", h.createAccount)
		r.Post("/journals", h.createJournal)
		r.Post("/journals/{id}/post", h.postJournal)
		r.Post("/journals/{id}/reverse", h.reverseJournal)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAccountingRulesView))
		r.Get("/rules", h.listRules)
		r.Get("/rules/{id}", h.getRule)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAccountingRulesEdit))
		r.Post("/rules", h.createRule)
		r.Put("/rules/{id}", h.updateRule)
		r.Delete("/rules/{id}", h.deleteRule)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSubledgerView))
		r.Get("/subledger", h.listSubledger)
		r.Post("/subledger/{id}/settle", h.settleSubledger)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAccountingRulesEdit))
		r.Post("/subledger/rebuild", h.rebuildSubledger)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermGeneralLedgerView))
		r.Get("/ledger", h.ledgerBalances)
		r.Get("/ledger/outstanding", h.outstandingBalances)
	})
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var in AccountInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.ValidationProblem(w, validationFields(err))
		return
	}
	account, err := h.service.CreateAccount(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) listJournals(w http.ResponseWriter, r *http.Request) {
	journals, err := h.service.ListJournals(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"journals": journals})
}

func (h *Handler) getJournal(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	j, err := h.service.GetJournal(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, j)
}

type journalLineRequest struct {
	AccountID int64  `json:"account_id" validate:"required,gt=0"`
	Debit     string `json:"debit"`
	Credit    string `json:"credit"`
	Memo      string `json:"memo" validate:"max=200"`
}

type journalRequest struct {
	Description string               `json:"description" validate:"required,max=400"`
	Date        string               `json:"date" validate:"required"`
	Lines       []journalLineRequest `json:"lines" validate:"required,min=2,dive"`
}

func (h *Handler) createJournal(w http.ResponseWriter, r *http.Request) {
	var req journalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, validationFields(err))
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	lines := make([]JournalLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		debit, err := parseAmount(l.Debit)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "debit must be a non-negative number")
			return
		}
		credit, err := parseAmount(l.Credit)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "credit must be a non-negative number")
			return
		}
		lines = append(lines, JournalLine{AccountID: l.AccountID, Debit: debit, Credit: credit, Memo: l.Memo})
	}
	j, err := h.service.CreateDraft(r.Context(), req.Description, date, lines)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, j)
}

func (h *Handler) postJournal(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	userID, _ := rbac.CurrentUserID(r)
	j, err := h.service.Post(r.Context(), id, userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, j)
}

func (h *Handler) reverseJournal(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	userID, _ := rbac.CurrentUserID(r)
	j, err := h.service.Reverse(r.Context(), id, userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, j)
}

func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.service.ListRules(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (h *Handler) getRule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	rule, err := h.service.GetRule(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rule)
}

func (h *Handler) createRule(w http.ResponseWriter, r *http.Request) {
	var rule Rule
	if err := httpx.DecodeJSON(r, &rule); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if rule.Name == "" || rule.EventType == "" || rule.DebitAccountID == 0 || rule.CreditAccountID == 0 || rule.AmountField == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed",
			"name, event_type, debit_account_id, credit_account_id and amount_field are required")
		return
	}
	created, err := h.service.CreateRule(r.Context(), rule)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateRule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var rule Rule
	if err := httpx.DecodeJSON(r, &rule); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	rule.ID = id
	updated, err := h.service.UpdateRule(r.Context(), rule)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteRule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteRule(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listSubledger(w http.ResponseWriter, r *http.Request) {
	status := SubledgerStatus(r.URL.Query().Get("status"))
	entries, err := h.service.ListSubledger(r.Context(), status)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) settleSubledger(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	entry, err := h.service.SettleSubledgerEntry(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) ledgerBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.service.LedgerBalances(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"balances": balances})
}

func (h *Handler) outstandingBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.service.OutstandingBalances(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"outstanding": balances})
}

func (h *Handler) rebuildSubledger(w http.ResponseWriter, r *http.Request) {
	if h.rebuilds == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "rebuild queue not configured")
		return
	}
	scope := tenant.ScopeFromContext(r.Context())
	if scope == nil || !scope.Valid() {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "no organization scope")
		return
	}
	if err := h.rebuilds.EnqueueRebuild(r.Context(), scope.OrganizationID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"status": "queued"})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "record not found")
	case errors.Is(err, ErrUnbalanced), errors.Is(err, ErrNoLines):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrDuplicateSource):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	default:
		h.logger.Error("accounting request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil || value.IsNegative() {
		return decimal.Zero, errors.New("invalid amount")
	}
	return value, nil
}

func validationFields(err error) map[string]string {
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	return fields
}
