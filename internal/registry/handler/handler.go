package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"namereg/internal/platform/metrics"
	"namereg/internal/registry/introspection"
	"namereg/internal/registry/models"
	id "namereg/pkg/domain"
	dErrors "namereg/pkg/domain-errors"
	"namereg/pkg/platform/httputil"
	"namereg/pkg/platform/middleware/auth"
	"namereg/pkg/platform/middleware/request"
	"namereg/pkg/platform/middleware/requesttime"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the registry operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, parentID id.DomainID, prefix string) (id.DomainID, error)
	Claim(ctx context.Context, domainID id.DomainID) error
	Refresh(ctx context.Context, domainID id.DomainID) error
	TransferFrom(ctx context.Context, from, to id.Address, domainID id.DomainID) error
	SafeTransferFrom(ctx context.Context, from, to id.Address, domainID id.DomainID, data []byte) error
	Approve(ctx context.Context, to id.Address, domainID id.DomainID) error
	SetApprovalForAll(ctx context.Context, operator id.Address, approved bool) error

	OwnerOf(ctx context.Context, domainID id.DomainID) (id.Address, error)
	BalanceOf(ctx context.Context, owner id.Address) (int, error)
	GetApproved(ctx context.Context, domainID id.DomainID) (id.Address, error)
	IsApprovedForAll(ctx context.Context, owner, operator id.Address) (bool, error)
	NameOf(ctx context.Context, domainID id.DomainID) (string, error)
	IdOf(ctx context.Context, name string) (id.DomainID, error)
	SupportsInterface(interfaceID introspection.InterfaceID) bool
	Domain(ctx context.Context, domainID id.DomainID) (*models.DomainResponse, error)
}

// Handler serves the registry JSON API.
type Handler struct {
	logger       *slog.Logger
	registry     Service
	metrics      *metrics.Metrics
	jwtValidator auth.JWTValidator
	timeout      time.Duration
}

// New creates a registry Handler. metrics may be nil.
func New(
	registry Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator auth.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		registry:     registry,
		metrics:      metrics,
		jwtValidator: jwtValidator,
		timeout:      30 * time.Second,
	}
}

// Register registers the registry routes with the chi router. Reads are
// public; every mutation requires a bearer token whose subject is the caller.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(request.Recovery(h.logger))
		r.Use(request.RequestID)
		r.Use(request.Logger(h.logger))
		r.Use(chimw.Timeout(h.timeout))
		r.Use(requesttime.Middleware)
		if h.metrics != nil {
			r.Use(h.metrics.LatencyMiddleware)
		}

		r.Get("/domains/{id}", h.handleGetDomain)
		r.Get("/domains/{id}/owner", h.handleOwnerOf)
		r.Get("/domains/{id}/approved", h.handleGetApproved)
		r.Get("/domains/{id}/name", h.handleNameOf)
		r.Get("/names/*", h.handleIdOf)
		r.Get("/balances/{address}", h.handleBalanceOf)
		r.Get("/operators/{owner}/{operator}", h.handleIsApprovedForAll)
		r.Get("/interfaces/{interfaceID}", h.handleSupportsInterface)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(h.jwtValidator, h.logger))
			r.Post("/domains", h.handleCreate)
			r.Post("/domains/{id}/claim", h.handleClaim)
			r.Post("/domains/{id}/refresh", h.handleRefresh)
			r.Post("/domains/{id}/approve", h.handleApprove)
			r.Post("/domains/{id}/transfer", h.handleTransfer)
			r.Put("/operators/{operator}", h.handleSetApprovalForAll)
		})
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.CreateDomainRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "create", err)
		return
	}
	domainID, err := h.registry.Create(ctx, req.ParentID, req.Prefix)
	if err != nil {
		h.writeError(ctx, w, "create", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, idResponse{ID: domainID})
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	h.mutateDomain(w, r, "claim", h.registry.Claim)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	h.mutateDomain(w, r, "refresh", h.registry.Refresh)
}

func (h *Handler) mutateDomain(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, id.DomainID) error) {
	ctx := r.Context()
	domainID, err := id.ParseDomainID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, op, err)
		return
	}
	if err := fn(ctx, domainID); err != nil {
		h.writeError(ctx, w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domainID, err := id.ParseDomainID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "approve", err)
		return
	}
	var req models.ApproveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "approve", err)
		return
	}
	if err := h.registry.Approve(ctx, req.To, domainID); err != nil {
		h.writeError(ctx, w, "approve", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domainID, err := id.ParseDomainID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "transfer", err)
		return
	}
	var req models.TransferRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "transfer", err)
		return
	}
	if req.Safe {
		err = h.registry.SafeTransferFrom(ctx, req.From, req.To, domainID, req.Data)
	} else {
		err = h.registry.TransferFrom(ctx, req.From, req.To, domainID)
	}
	if err != nil {
		h.writeError(ctx, w, "transfer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetApprovalForAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operator, err := id.ParseAddress(chi.URLParam(r, "operator"))
	if err != nil {
		h.writeError(ctx, w, "set_approval_for_all", err)
		return
	}
	var req models.SetApprovalForAllRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "set_approval_for_all", err)
		return
	}
	if err := h.registry.SetApprovalForAll(ctx, operator, req.Approved); err != nil {
		h.writeError(ctx, w, "set_approval_for_all", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetDomain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domainID, err := id.ParseDomainID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "domain", err)
		return
	}
	d, err := h.registry.Domain(ctx, domainID)
	if err != nil {
		h.writeError(ctx, w, "domain", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleOwnerOf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domainID, err := id.ParseDomainID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "owner_of", err)
		return
	}
	owner, err := h.registry.OwnerOf(ctx, domainID)
	if err != nil {
		h.writeError(ctx, w, "owner_of", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ownerResponse{Owner: owner})
}

func (h *Handler) handleGetApproved(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domainID, err := id.ParseDomainID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "get_approved", err)
		return
	}
	approved, err := h.registry.GetApproved(ctx, domainID)
	if err != nil {
		h.writeError(ctx, w, "get_approved", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, approvedResponse{Approved: approved})
}

func (h *Handler) handleNameOf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domainID, err := id.ParseDomainID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "name_of", err)
		return
	}
	name, err := h.registry.NameOf(ctx, domainID)
	if err != nil {
		h.writeError(ctx, w, "name_of", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nameResponse{ID: domainID, Name: name})
}

// handleIdOf resolves /names/{name}. The root resolves at /names/.
func (h *Handler) handleIdOf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, err := nameParam(r)
	if err != nil {
		h.writeError(ctx, w, "id_of", err)
		return
	}
	domainID, err := h.registry.IdOf(ctx, name)
	if err != nil {
		h.writeError(ctx, w, "id_of", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nameResponse{ID: domainID, Name: name})
}

// nameParam returns the decoded wildcard. chi matches on RawPath when one is
// set, which leaves escapes such as %2F in the captured value.
func nameParam(r *http.Request) (string, error) {
	name := chi.URLParam(r, "*")
	if r.URL.RawPath == "" {
		return name, nil
	}
	decoded, err := url.PathUnescape(name)
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "name is not a valid escaped path")
	}
	return decoded, nil
}

func (h *Handler) handleBalanceOf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := id.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(ctx, w, "balance_of", err)
		return
	}
	balance, err := h.registry.BalanceOf(ctx, owner)
	if err != nil {
		h.writeError(ctx, w, "balance_of", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, balanceResponse{Owner: owner, Balance: balance})
}

func (h *Handler) handleIsApprovedForAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := id.ParseAddress(chi.URLParam(r, "owner"))
	if err != nil {
		h.writeError(ctx, w, "is_approved_for_all", err)
		return
	}
	operator, err := id.ParseAddress(chi.URLParam(r, "operator"))
	if err != nil {
		h.writeError(ctx, w, "is_approved_for_all", err)
		return
	}
	approved, err := h.registry.IsApprovedForAll(ctx, owner, operator)
	if err != nil {
		h.writeError(ctx, w, "is_approved_for_all", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, operatorResponse{Owner: owner, Operator: operator, Approved: approved})
}

func (h *Handler) handleSupportsInterface(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	interfaceID, err := introspection.ParseInterfaceID(chi.URLParam(r, "interfaceID"))
	if err != nil {
		h.writeError(ctx, w, "supports_interface", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, interfaceResponse{
		InterfaceID: interfaceID.String(),
		Supported:   h.registry.SupportsInterface(interfaceID),
	})
}

// writeError logs rejected operations at warn and failures at error, then
// renders the coded envelope.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	code := dErrors.CodeOf(err)
	attrs := []any{
		"operation", op,
		"code", string(code),
		"error", err.Error(),
		"request_id", request.GetRequestID(ctx),
	}
	if dErrors.ToHTTPStatus(code) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "registry operation failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, "registry operation rejected", attrs...)
	}
	httputil.WriteError(w, err)
}
