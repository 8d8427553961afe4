package httppresentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	appinv "github.com/vberihuete/BIU-master-oop/internal/application/inventory"
	apppay "github.com/vberihuete/BIU-master-oop/internal/application/payment"
	dominv "github.com/vberihuete/BIU-master-oop/internal/domain/inventory"
	dompay "github.com/vberihuete/BIU-master-oop/internal/domain/payment"
	"github.com/vberihuete/BIU-master-oop/internal/infrastructure/eventbus"
	"github.com/vberihuete/BIU-master-oop/internal/observability"
)

const componentHTTPHandler = "http_server"

// EventControl is the part of the notification bus exposed over HTTP.
type EventControl interface {
	Stats() eventbus.Stats
	SetEnabled(enabled bool)
}

type Handler struct {
	inventory *appinv.Service
	payments  *apppay.Service
	events    EventControl

	log      observability.Logger
	tracer   observability.Tracer
	requests observability.Counter   // http_requests_total{method,route,status}
	latency  observability.Histogram // http_request_duration_seconds{method,route,status}
}

func NewHandler(
	inventorySvc *appinv.Service,
	paymentSvc *apppay.Service,
	events EventControl,
	tel observability.Observability,
) *Handler {
	logger, tracer, metrics := observability.Components(tel)
	return &Handler{
		inventory: inventorySvc,
		payments:  paymentSvc,
		events:    events,
		log:       logger.With(observability.F("component", componentHTTPHandler)),
		tracer:    tracer,
		requests:  metrics.Counter(observability.MHTTPRequests),
		latency:   metrics.Histogram(observability.MHTTPRequestDuration),
	}
}

// Router wires every route behind Trace → request logger → access log →
// HTTP metrics → recoverer.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(h.withTrace)
	r.Use(ObservabilityMiddleware(h.log,
		func(r *http.Request) string { return r.Header.Get(headerRequestID) },
		func(r *http.Request) string { return r.Header.Get(headerTenantID) },
	))
	r.Use(h.withAccessLog)
	r.Use(h.withHTTPMetrics)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)

	r.Route("/ledgers", func(r chi.Router) {
		r.Get("/", h.handleListLedgers)
		r.Route("/{ledger}", func(r chi.Router) {
			r.Get("/", h.handleGetLedger)
			r.Get("/room", h.handleHasRoom)
			r.Get("/entries", h.handleListEntries)
			r.Post("/entries", h.handleAddEntry)
			r.Get("/entries/{id}", h.handleGetEntry)
			r.Delete("/entries/{id}", h.handleRemoveEntry)
			r.Put("/entries/{id}/stock", h.handleUpdateStock)
		})
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/card", h.handleStartCard)
		r.Post("/wallet", h.handleStartWallet)
		r.Get("/{id}", h.handlePaymentStatus)
		r.Post("/{id}/verify", h.handleVerify)
		r.Post("/{id}/confirm", h.handleConfirm)
		r.Post("/{id}/cancel", h.handleCancel)
	})

	r.Get("/events", h.handleEventStats)
	r.Put("/events/enabled", h.handleToggleEvents)

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// --- inventory

// entryRequest carries either a digital or a physical entry. Kind defaults to
// the kind of the target ledger.
type entryRequest struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Price      float64            `json:"price"`
	Quantity   int                `json:"quantity"`
	Kind       dominv.EntryKind   `json:"kind,omitempty"`
	Format     string             `json:"format,omitempty"`
	URL        string             `json:"url,omitempty"`
	Weight     float64            `json:"weight,omitempty"`
	Dimensions *dominv.Dimensions `json:"dimensions,omitempty"`
}

func (req entryRequest) entry(fallback dominv.EntryKind) (dominv.Entry, error) {
	kind := req.Kind
	if kind == "" {
		kind = fallback
	}
	switch kind {
	case dominv.KindDigital:
		return dominv.NewDigitalEntry(req.ID, req.Name, req.Price, req.Quantity, req.Format, req.URL)
	case dominv.KindPhysical:
		var dims dominv.Dimensions
		if req.Dimensions != nil {
			dims = *req.Dimensions
		}
		return dominv.NewPhysicalEntry(req.ID, req.Name, req.Price, req.Quantity, req.Weight, dims)
	default:
		return dominv.Entry{}, fmt.Errorf("%w: unknown kind %q", dominv.ErrInvalidArgument, kind)
	}
}

type stockRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *Handler) handleListLedgers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.inventory.Ledgers())
}

func (h *Handler) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	info, err := h.inventory.Describe(chi.URLParam(r, "ledger"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) handleHasRoom(w http.ResponseWriter, r *http.Request) {
	weight, err := queryFloat(r, "weight")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	volume, err := queryFloat(r, "volume")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ledger := chi.URLParam(r, "ledger")
	room, err := h.inventory.HasRoomFor(r.Context(), ledger, weight, volume)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ledger": ledger,
		"weight": weight,
		"volume": volume,
		"room":   room,
	})
}

func (h *Handler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.inventory.ListEntries(r.Context(), chi.URLParam(r, "ledger"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.inventory.FindEntry(r.Context(), chi.URLParam(r, "ledger"), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ledger := chi.URLParam(r, "ledger")
	info, err := h.inventory.Describe(ledger)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	e, err := req.entry(info.Kind)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.inventory.AddEntry(r.Context(), ledger, e); err != nil {
		writeDomainError(w, err)
		return
	}
	stored, err := h.inventory.FindEntry(r.Context(), ledger, e.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (h *Handler) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.inventory.RemoveEntry(r.Context(), chi.URLParam(r, "ledger"), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Quantity == nil {
		writeError(w, http.StatusBadRequest, errors.New("quantity is required"))
		return
	}
	ledger, id := chi.URLParam(r, "ledger"), chi.URLParam(r, "id")
	if err := h.inventory.UpdateStock(r.Context(), ledger, id, *req.Quantity); err != nil {
		writeDomainError(w, err)
		return
	}
	e, err := h.inventory.FindEntry(r.Context(), ledger, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// --- payments

type cardPaymentRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Number   string  `json:"number"`
	CVV      string  `json:"cvv"`
	Expiry   string  `json:"expiry"`
	Holder   string  `json:"holder"`
}

type walletPaymentRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Account  string  `json:"account"`
}

type cancelResponse struct {
	TransactionID string       `json:"transactionId"`
	Cancelled     bool         `json:"cancelled"`
	State         dompay.State `json:"state"`
}

type statusResponse struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}

func (h *Handler) handleStartCard(w http.ResponseWriter, r *http.Request) {
	var req cardPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	card := dompay.Card{Number: req.Number, CVV: req.CVV, Expiry: req.Expiry, Holder: req.Holder}
	snap, err := h.payments.StartCard(r.Context(), card, apppay.StartInput{Amount: req.Amount, Currency: req.Currency})
	writePayment(w, http.StatusCreated, snap, err)
}

func (h *Handler) handleStartWallet(w http.ResponseWriter, r *http.Request) {
	var req walletPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	wallet := dompay.Wallet{Account: req.Account}
	snap, err := h.payments.StartWallet(r.Context(), wallet, apppay.StartInput{Amount: req.Amount, Currency: req.Currency})
	writePayment(w, http.StatusCreated, snap, err)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	snap, err := h.payments.Verify(r.Context(), chi.URLParam(r, "id"))
	writePayment(w, http.StatusOK, snap, err)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	snap, err := h.payments.Confirm(r.Context(), chi.URLParam(r, "id"))
	writePayment(w, http.StatusOK, snap, err)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok, err := h.payments.Cancel(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	tx, err := h.payments.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status := http.StatusOK
	if !ok {
		status = http.StatusConflict
	}
	writeJSON(w, status, cancelResponse{TransactionID: id, Cancelled: ok, State: tx.State()})
}

func (h *Handler) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st := h.payments.Status(r.Context(), id)
	status := http.StatusOK
	if st == dompay.StatusNotFound {
		status = http.StatusNotFound
	}
	writeJSON(w, status, statusResponse{TransactionID: id, Status: st})
}

// --- events

type toggleRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *Handler) handleEventStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.events.Stats())
}

func (h *Handler) handleToggleEvents(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, errors.New("enabled is required"))
		return
	}
	h.events.SetEnabled(*req.Enabled)
	writeJSON(w, http.StatusOK, h.events.Stats())
}

// --- encoding

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func queryFloat(r *http.Request, key string) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type capacityErrorBody struct {
	Error     string  `json:"error"`
	Ledger    string  `json:"ledger"`
	EntryID   string  `json:"entryId"`
	Dimension string  `json:"dimension"`
	Available float64 `json:"available"`
	Required  float64 `json:"required"`
}

type paymentErrorBody struct {
	Error         string       `json:"error"`
	TransactionID string       `json:"transactionId,omitempty"`
	Code          dompay.Code  `json:"code"`
	Field         string       `json:"field,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         dompay.State `json:"state,omitempty"`
}

func writePayment(w http.ResponseWriter, status int, snap dompay.Snapshot, err error) {
	if err == nil {
		writeJSON(w, status, snap)
		return
	}
	var ferr *dompay.FailedError
	if errors.As(err, &ferr) {
		writeJSON(w, http.StatusUnprocessableEntity, paymentErrorBody{
			Error:         err.Error(),
			TransactionID: ferr.TransactionID,
			Code:          ferr.Code,
			Field:         ferr.Field,
			Reason:        ferr.Reason,
			State:         snap.State,
		})
		return
	}
	writeDomainError(w, err)
}

func writeDomainError(w http.ResponseWriter, err error) {
	var capErr *dominv.CapacityError
	switch {
	case errors.As(err, &capErr):
		writeJSON(w, http.StatusConflict, capacityErrorBody{
			Error:     err.Error(),
			Ledger:    capErr.Ledger,
			EntryID:   capErr.EntryID,
			Dimension: string(capErr.Dimension),
			Available: capErr.Available,
			Required:  capErr.Required,
		})
	case errors.Is(err, appinv.ErrLedgerNotFound),
		errors.Is(err, dominv.ErrNotFound),
		errors.Is(err, dompay.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, dominv.ErrInvalidArgument),
		errors.Is(err, dominv.ErrInvalidEntry):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, dompay.ErrPaymentFailed):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
