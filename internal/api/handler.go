package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/tracker/internal/domain"
	"github.com/mtlprog/tracker/internal/export"
	"github.com/mtlprog/tracker/internal/external"
	"github.com/mtlprog/tracker/internal/ledger"
	"github.com/mtlprog/tracker/internal/logging"
	"github.com/mtlprog/tracker/internal/portfolio"
)

const (
	maxEntryBody  = 64 << 10
	maxImportBody = 16 << 20
)

// GoldBoarder provides the current gold dealer price board.
type GoldBoarder interface {
	GoldBoard(ctx context.Context) external.GoldBoard
}

// Handler provides HTTP endpoints for the tracker API.
type Handler struct {
	ledger    *ledger.Ledger
	portfolio *portfolio.Service
	gold      GoldBoarder
	now       func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(l *ledger.Ledger, svc *portfolio.Service, gold GoldBoarder) *Handler {
	return &Handler{ledger: l, portfolio: svc, gold: gold, now: time.Now}
}

// entryRequest is the body of POST /purchases and POST /sales.
// Numeric fields accept numbers or numeric strings; anything else reads as zero.
type entryRequest struct {
	Type         string         `json:"type"`
	Brand        string         `json:"brand"`
	Unit         string         `json:"unit"`
	Quantity     domain.Numeric `json:"quantity"`
	OriginValue  domain.Numeric `json:"originValue"`
	CurrentValue domain.Numeric `json:"currentValue"`
	SellPrice    domain.Numeric `json:"sellPrice"`
	Date         *time.Time     `json:"date"`
}

func (req entryRequest) asset() (domain.Asset, error) {
	t, err := domain.ParseAssetType(req.Type)
	if err != nil {
		return nil, err
	}
	unit, err := domain.ParseQuantityUnit(req.Unit)
	if err != nil {
		return nil, err
	}
	return domain.NewAsset(t, req.Brand, unit)
}

func (req entryRequest) date() time.Time {
	if req.Date == nil {
		return time.Time{}
	}
	return *req.Date
}

func decodeEntry(w http.ResponseWriter, r *http.Request) (entryRequest, domain.Asset, bool) {
	var req entryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEntryBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return entryRequest{}, nil, false
	}
	asset, err := req.asset()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return entryRequest{}, nil, false
	}
	return req, asset, true
}

func parseTypeParam(w http.ResponseWriter, raw string) (domain.AssetType, bool) {
	t, err := domain.ParseAssetType(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return t, true
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logging.FromContext(r.Context()).Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// GetTotals handles GET /api/v1/totals.
func (h *Handler) GetTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.ledger.TotalsByType(r.Context())
	if err != nil {
		h.internalError(w, r, "failed to compute totals", err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// GetOverview handles GET /api/v1/overview.
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.ledger.Overview(r.Context())
	if err != nil {
		h.internalError(w, r, "failed to compute overview", err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// ListPurchases handles GET /api/v1/purchases?type=.
func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	var (
		entries []domain.PurchaseEntry
		err     error
	)
	if raw := r.URL.Query().Get("type"); raw != "" {
		t, ok := parseTypeParam(w, raw)
		if !ok {
			return
		}
		entries, err = h.ledger.PurchasesByType(r.Context(), t)
	} else {
		var doc domain.Document
		doc, err = h.ledger.Document(r.Context())
		entries = doc.Purchases
	}
	if err != nil {
		h.internalError(w, r, "failed to list purchases", err)
		return
	}
	if entries == nil {
		entries = []domain.PurchaseEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// ListSales handles GET /api/v1/sales?type=.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	var (
		entries []domain.SaleEntry
		err     error
	)
	if raw := r.URL.Query().Get("type"); raw != "" {
		t, ok := parseTypeParam(w, raw)
		if !ok {
			return
		}
		entries, err = h.ledger.SalesByType(r.Context(), t)
	} else {
		var doc domain.Document
		doc, err = h.ledger.Document(r.Context())
		entries = doc.Sales
	}
	if err != nil {
		h.internalError(w, r, "failed to list sales", err)
		return
	}
	if entries == nil {
		entries = []domain.SaleEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetRemaining handles GET /api/v1/remaining/{type}.
func (h *Handler) GetRemaining(w http.ResponseWriter, r *http.Request) {
	t, ok := parseTypeParam(w, r.PathValue("type"))
	if !ok {
		return
	}
	remaining, err := h.ledger.RemainingByDimension(r.Context(), t)
	if err != nil {
		h.internalError(w, r, "failed to compute remaining", err)
		return
	}
	writeJSON(w, http.StatusOK, remaining)
}

// AddPurchase handles POST /api/v1/purchases.
func (h *Handler) AddPurchase(w http.ResponseWriter, r *http.Request) {
	req, asset, ok := decodeEntry(w, r)
	if !ok {
		return
	}

	var current decimal.NullDecimal
	if req.CurrentValue.IsSet() {
		current = decimal.NewNullDecimal(req.CurrentValue.Decimal())
	}

	id, err := h.portfolio.AddPurchase(r.Context(), portfolio.PurchaseRequest{
		Asset:        asset,
		Quantity:     req.Quantity.Decimal(),
		OriginValue:  req.OriginValue.Decimal(),
		CurrentValue: current,
		Date:         req.date(),
	})
	if err != nil {
		h.internalError(w, r, "failed to add purchase", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]domain.EntryID{"id": id})
}

// AddSale handles POST /api/v1/sales.
func (h *Handler) AddSale(w http.ResponseWriter, r *http.Request) {
	req, asset, ok := decodeEntry(w, r)
	if !ok {
		return
	}

	id, err := h.ledger.AddSale(r.Context(), asset, req.Quantity.Decimal(), req.SellPrice.Decimal(), req.date())
	if err != nil {
		h.internalError(w, r, "failed to add sale", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]domain.EntryID{"id": id})
}

// Refresh handles POST /api/v1/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.portfolio.Refresh(r.Context())
	if err != nil {
		h.internalError(w, r, "failed to refresh prices", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Export handles GET /api/v1/export. ?format=xlsx returns a workbook instead of JSON.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	stamp := h.now().UTC().Format("2006-01-02")

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		data, err := h.ledger.Export(r.Context())
		if err != nil {
			h.internalError(w, r, "failed to export ledger", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="resource-tracker-%s.json"`, stamp))
		if _, err := w.Write(data); err != nil {
			slog.Warn("failed to write export body", "error", err)
		}
	case "xlsx":
		doc, err := h.ledger.Document(r.Context())
		if err != nil {
			h.internalError(w, r, "failed to read ledger", err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="resource-tracker-%s.xlsx"`, stamp))
		if err := export.WriteWorkbook(w, export.BuildSheets(doc, h.now())); err != nil {
			slog.Warn("failed to write workbook", "error", err)
		}
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown export format %q", format))
	}
}

// Import handles POST /api/v1/import?mode=replace|merge.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	mode, err := ledger.ParseImportMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "import payload too large")
		return
	}

	if err := h.ledger.Import(r.Context(), data, mode); err != nil {
		if errors.Is(err, ledger.ErrMalformedImport) {
			writeError(w, http.StatusBadRequest, "malformed import payload")
			return
		}
		h.internalError(w, r, "failed to import ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "imported", "mode": string(mode)})
}

// GetGoldPrices handles GET /api/v1/gold-prices.
func (h *Handler) GetGoldPrices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.gold.GoldBoard(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
