package sync

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/mobistock/mobistock/internal/platform/httpx"
	"github.com/mobistock/mobistock/internal/record"
	"github.com/mobistock/mobistock/internal/store"
)

// Enqueuer hands a batch to the background queue for ordered application.
type Enqueuer interface {
	EnqueueBatch(ctx context.Context, records []ChangeRecord) error
}

// Handler exposes the sync ingestion endpoints.
type Handler struct {
	logger     *slog.Logger
	integrator *Integrator
	enqueuer   Enqueuer
	validate   *validator.Validate
}

// NewHandler builds the sync handler. A nil enqueuer disables the queue
// endpoint.
func NewHandler(logger *slog.Logger, integrator *Integrator, enqueuer Enqueuer) *Handler {
	return &Handler{
		logger:     logger,
		integrator: integrator,
		enqueuer:   enqueuer,
		validate:   validator.New(),
	}
}

// Routes mounts the sync endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/records", h.Apply)
	r.Post("/queue", h.Queue)
	r.Get("/status", h.Status)
	return r
}

// statusKinds are the kinds reported by the status endpoint.
var statusKinds = []record.Kind{
	record.KindItem,
	record.KindItemBatch,
	record.KindName,
	record.KindTransaction,
	record.KindRequisition,
	record.KindStocktake,
}

type batchRequest struct {
	Records []ChangeRecord `json:"records" validate:"required,dive"`
}

type batchResponse struct {
	Applied  int            `json:"applied"`
	Skipped  int            `json:"skipped"`
	Failures []batchFailure `json:"failures,omitempty"`
}

type batchFailure struct {
	RecordID   string `json:"recordId"`
	RecordType string `json:"recordType"`
	Error      string `json:"error"`
}

func (h *Handler) decodeBatch(r *http.Request) (batchRequest, error) {
	var req batchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return req, err
	}
	if err := h.validate.Struct(req); err != nil {
		return req, err
	}
	return req, nil
}

// Apply integrates the batch inline and reports the outcome.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeBatch(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	report, err := h.integrator.IntegrateBatch(r.Context(), req.Records)
	if err != nil {
		h.logger.Error("sync batch failed", "error", err)
		httpx.Error(w, err)
		return
	}

	resp := batchResponse{Applied: report.Applied, Skipped: report.Skipped}
	for _, failure := range report.Failures {
		resp.Failures = append(resp.Failures, batchFailure{
			RecordID:   failure.RecordID,
			RecordType: failure.RecordType,
			Error:      failure.Err.Error(),
		})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// Queue hands the batch to the background worker and returns immediately.
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "queue not configured")
		return
	}
	req, err := h.decodeBatch(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := h.enqueuer.EnqueueBatch(r.Context(), req.Records); err != nil {
		h.logger.Error("sync enqueue failed", "error", err)
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]int{"queued": len(req.Records)})
}

// Status reports record counts per kind. Each kind is counted in its own
// snapshot, concurrently; the numbers are a health signal, not a consistent
// cut of the store.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	counts := make([]int, len(statusKinds))
	g, ctx := errgroup.WithContext(r.Context())
	for i, kind := range statusKinds {
		i, kind := i, kind
		g.Go(func() error {
			return h.integrator.store.RunAtomic(ctx, func(tx store.Tx) error {
				records, err := tx.Query(kind)
				if err != nil {
					return err
				}
				counts[i] = len(records)
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		h.logger.Error("sync status failed", "error", err)
		httpx.Error(w, err)
		return
	}

	out := make(map[string]int, len(statusKinds))
	for i, kind := range statusKinds {
		out[string(kind)] = counts[i]
	}
	httpx.JSON(w, http.StatusOK, out)
}
