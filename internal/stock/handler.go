package stock

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockline-erp/stockline/internal/observability"
	"github.com/stockline-erp/stockline/internal/platform/httpx"
	"github.com/stockline-erp/stockline/internal/shared"
)

// Handler wires HTTP endpoints for the stock module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	metrics  *observability.Metrics
	validate *validator.Validate
}

// NewHandler constructs the stock handler.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	return &Handler{logger: logger, service: service, metrics: metrics, validate: validator.New()}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/movements", h.handleSubmitMovement)
	r.Get("/balance", h.handleGetBalance)
	r.Get("/items/{id}/total", h.handleGetTotalStock)
	r.Get("/items/{id}/movements", h.handleListMovements)
}

type submitMovementRequest struct {
	ItemID           int64  `json:"item_id" validate:"required"`
	Type             string `json:"type" validate:"required"`
	Quantity         int64  `json:"quantity"`
	SourceLocationID int64  `json:"source_location_id"`
	DestLocationID   int64  `json:"dest_location_id"`
	Note             string `json:"note" validate:"max=1000"`
	Reference        string `json:"reference" validate:"omitempty,uuid"`
}

type movementResponse struct {
	ID               int64     `json:"id"`
	Reference        string    `json:"reference"`
	ItemID           int64     `json:"item_id"`
	Type             string    `json:"type"`
	Quantity         int64     `json:"quantity"`
	SourceLocationID int64     `json:"source_location_id,omitempty"`
	DestLocationID   int64     `json:"dest_location_id,omitempty"`
	Note             string    `json:"note,omitempty"`
	CommittedAt      time.Time `json:"committed_at"`
}

func toMovementResponse(m Movement) movementResponse {
	return movementResponse{
		ID:               m.ID,
		Reference:        m.Reference,
		ItemID:           m.ItemID,
		Type:             string(m.Type),
		Quantity:         m.Quantity,
		SourceLocationID: m.SourceLocationID,
		DestLocationID:   m.DestLocationID,
		Note:             m.Note,
		CommittedAt:      m.CommittedAt,
	}
}

func (h *Handler) handleSubmitMovement(w http.ResponseWriter, r *http.Request) {
	var req submitMovementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	committed, err := h.service.Submit(r.Context(), MovementInput{
		ItemID:           req.ItemID,
		Type:             MovementType(req.Type),
		Quantity:         req.Quantity,
		SourceLocationID: req.SourceLocationID,
		DestLocationID:   req.DestLocationID,
		Note:             req.Note,
		Reference:        req.Reference,
	})
	if err != nil {
		h.logger.Warn("movement rejected",
			slog.Int64("item_id", req.ItemID),
			slog.String("type", req.Type),
			slog.Any("error", err))
		h.respondMovementError(w, err)
		return
	}

	h.metrics.MovementCommitted(string(committed.Type))
	h.logger.Info("movement committed",
		slog.String("reference", committed.Reference),
		slog.String("type", string(committed.Type)),
		slog.Int64("item_id", committed.ItemID),
		slog.Int64("quantity", committed.Quantity))
	httpx.JSON(w, http.StatusCreated, toMovementResponse(committed))
}

func (h *Handler) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(r.URL.Query().Get("item_id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "item_id is required")
		return
	}
	locationID, err := strconv.ParseInt(r.URL.Query().Get("location_id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "location_id is required")
		return
	}
	quantity, err := h.service.GetBalance(r.Context(), itemID, locationID)
	if err != nil {
		h.logger.Error("get balance failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"item_id":     itemID,
		"location_id": locationID,
		"quantity":    quantity,
	})
}

func (h *Handler) handleGetTotalStock(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	total, err := h.service.GetTotalStock(r.Context(), itemID)
	if err != nil {
		h.logger.Error("get total stock failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"item_id": itemID,
		"total":   total,
	})
}

func (h *Handler) handleListMovements(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.service.ListRecentMovements(r.Context(), itemID, limit)
	if err != nil {
		h.logger.Error("list movements failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	result := make([]movementResponse, 0, len(movements))
	for _, m := range movements {
		result = append(result, toMovementResponse(m))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": result})
}

func (h *Handler) respondMovementError(w http.ResponseWriter, err error) {
	var insufficient *InsufficientStockError
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		h.metrics.MovementRejected("invalid_quantity")
		httpx.Problem(w, http.StatusBadRequest, "Invalid Quantity", "quantity must be a positive integer")
	case errors.Is(err, ErrInvalidLocationCombination):
		h.metrics.MovementRejected("invalid_location_combination")
		httpx.Problem(w, http.StatusBadRequest, "Invalid Location Combination", "the movement type does not allow this source/destination combination")
	case errors.Is(err, ErrSameSourceAndDestination):
		h.metrics.MovementRejected("same_source_and_destination")
		httpx.Problem(w, http.StatusBadRequest, "Invalid Transfer", "transfer source and destination must differ")
	case errors.Is(err, ErrUnknownMovementType):
		h.metrics.MovementRejected("unknown_movement_type")
		httpx.Problem(w, http.StatusBadRequest, "Unknown Movement Type", "type must be RECEIPT, SHIPMENT or TRANSFER")
	case errors.Is(err, ErrUnknownItem):
		h.metrics.MovementRejected("unknown_item")
		httpx.Problem(w, http.StatusNotFound, "Unknown Item", "the referenced item does not exist")
	case errors.Is(err, ErrUnknownLocation):
		h.metrics.MovementRejected("unknown_location")
		httpx.Problem(w, http.StatusNotFound, "Unknown Location", "a referenced location does not exist")
	case errors.As(err, &insufficient):
		h.metrics.MovementRejected("insufficient_stock")
		httpx.JSON(w, http.StatusConflict, map[string]any{
			"title":       "Insufficient Stock",
			"status":      http.StatusConflict,
			"location_id": insufficient.LocationID,
			"available":   insufficient.Available,
			"requested":   insufficient.Requested,
		})
	case errors.Is(err, shared.ErrIdempotencyConflict):
		h.metrics.MovementRejected("duplicate_reference")
		httpx.Problem(w, http.StatusConflict, "Already Processed", "a movement with this reference was already committed")
	default:
		h.metrics.MovementRejected("internal")
		httpx.RespondError(w, err)
	}
}
