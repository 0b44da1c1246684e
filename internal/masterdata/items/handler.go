package items

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/stockline-erp/stockline/internal/masterdata/shared"
	"github.com/stockline-erp/stockline/internal/platform/httpx"
	appshared "github.com/stockline-erp/stockline/internal/shared"
	"github.com/stockline-erp/stockline/internal/stock"
)

// StockReader supplies the stock figures shown on the item detail view.
type StockReader interface {
	GetTotalStock(ctx context.Context, itemID int64) (int64, error)
	ListItemBalances(ctx context.Context, itemID int64) ([]stock.Balance, error)
}

type Handler struct {
	logger   *slog.Logger
	service  *Service
	stock    StockReader
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, stock StockReader) *Handler {
	return &Handler{logger: logger, service: service, stock: stock, validate: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type itemRequest struct {
	CategoryID  int64  `json:"category_id"`
	SKU         string `json:"sku" validate:"omitempty,max=50"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description"`
	Price       string `json:"price" validate:"omitempty"`
}

func (req itemRequest) toItem() (Item, error) {
	price := decimal.Zero
	if req.Price != "" {
		parsed, err := decimal.NewFromString(req.Price)
		if err != nil {
			return Item{}, err
		}
		price = parsed
	}
	return Item{
		CategoryID:  req.CategoryID,
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
	}, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := parseFilters(r)
	items, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list items failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":      items,
		"pagination": appshared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	payload := map[string]any{"item": item}
	if h.stock != nil {
		if total, err := h.stock.GetTotalStock(r.Context(), id); err == nil {
			payload["total_stock"] = total
		} else {
			h.logger.Warn("total stock lookup failed", slog.Int64("item_id", id), slog.Any("error", err))
		}
		if balances, err := h.stock.ListItemBalances(r.Context(), id); err == nil {
			perLocation := make([]map[string]any, 0, len(balances))
			for _, b := range balances {
				perLocation = append(perLocation, map[string]any{
					"location_id": b.LocationID,
					"quantity":    b.Quantity,
				})
			}
			payload["balances"] = perLocation
		} else {
			h.logger.Warn("balance lookup failed", slog.Int64("item_id", id), slog.Any("error", err))
		}
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	item, err := req.toItem()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "price must be a decimal number")
		return
	}
	created, err := h.service.Create(r.Context(), item)
	if err != nil {
		h.logger.Error("create item failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	var req itemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	item, err := req.toItem()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "price must be a decimal number")
		return
	}
	if err := h.service.Update(r.Context(), id, item); err != nil {
		h.logger.Error("update item failed", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete item failed", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseFilters(r *http.Request) shared.ListFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	filters := shared.ListFilters{
		Page:    page,
		Limit:   limit,
		Search:  q.Get("search"),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
	}
	if raw := q.Get("category_id"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filters.CategoryID = &parsed
		}
	}
	return filters
}
