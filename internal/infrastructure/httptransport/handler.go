package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appanalytics "github.com/pivend/vend/internal/application/analytics"
	appdevice "github.com/pivend/vend/internal/application/device"
	appinventory "github.com/pivend/vend/internal/application/inventory"
	appvending "github.com/pivend/vend/internal/application/vending"
	domaininventory "github.com/pivend/vend/internal/domain/inventory"
	domainsale "github.com/pivend/vend/internal/domain/sale"
	"github.com/pivend/vend/internal/observability"
	"github.com/pivend/vend/internal/observability/logctx"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
)

type Handler struct {
	purchase  *appvending.PurchaseUseCase
	inventory *appinventory.Service
	analytics *appanalytics.Service
	device    *appdevice.Service
	capture   *appdevice.CaptureService

	log observability.Logger

	httpRequests observability.Counter   // http_requests_total{route,method,status}
	httpDuration observability.Histogram // http_request_duration_seconds{route}
}

func NewHandler(
	purchase *appvending.PurchaseUseCase,
	inventorySvc *appinventory.Service,
	analyticsSvc *appanalytics.Service,
	deviceSvc *appdevice.Service,
	captureSvc *appdevice.CaptureService,
	tel observability.Observability,
) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		purchase:     purchase,
		inventory:    inventorySvc,
		analytics:    analyticsSvc,
		device:       deviceSvc,
		capture:      captureSvc,
		log:          tel.Logger().With(observability.F("component", componentHTTPHandler)),
		httpRequests: tel.Metrics().Counter(observability.MHTTPRequests),
		httpDuration: tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/purchase", h.handle(http.MethodPost, "/purchase", h.handlePurchase))
	mux.HandleFunc("/products", h.handle(http.MethodGet, "/products", h.handleListProducts))

	mux.HandleFunc("/admin/products", h.handleAdminProducts)
	mux.HandleFunc("/admin/products/", h.handleAdminProductByID)
	mux.HandleFunc("/admin/inventory/adjust", h.handle(http.MethodPost, "/admin/inventory/adjust", h.handleAdjustInventory))
	mux.HandleFunc("/admin/device-state", h.handleDeviceState)

	mux.HandleFunc("/telemetry/capture", h.handle(http.MethodPost, "/telemetry/capture", h.handleCaptureTelemetry))
	mux.HandleFunc("/telemetry", h.handle(http.MethodGet, "/telemetry", h.handleLatestTelemetry))

	mux.HandleFunc("/analytics/sales/summary", h.handle(http.MethodGet, "/analytics/sales/summary", h.handleSalesSummary))
	mux.HandleFunc("/analytics/inventory/turnover", h.handle(http.MethodGet, "/analytics/inventory/turnover", h.handleInventoryTurnover))
	mux.HandleFunc("/analytics/telemetry/trend", h.handle(http.MethodGet, "/analytics/telemetry/trend", h.handleTelemetryTrend))

	mux.HandleFunc("/health", h.handle(http.MethodGet, "/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))

	return mux
}

// handleAdminProducts dispatches the two methods sharing one route.
func (h *Handler) handleAdminProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handle(http.MethodPost, "/admin/products", h.handleCreateProduct)(w, r)
	case http.MethodGet:
		h.handle(http.MethodGet, "/admin/products", h.handleListAllProducts)(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}

// handleAdminProductByID covers PATCH /admin/products/{id} and
// GET /admin/products/{id}/history.
func (h *Handler) handleAdminProductByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/admin/products/")
	switch {
	case strings.HasSuffix(rest, "/history"):
		h.handle(http.MethodGet, "/admin/products/{id}/history", h.handleStockHistory)(w, r)
	default:
		h.handle(http.MethodPatch, "/admin/products/{id}", h.handleUpdateProduct)(w, r)
	}
}

func (h *Handler) handleDeviceState(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handle(http.MethodGet, "/admin/device-state", h.handleReadDeviceState)(w, r)
	case http.MethodPost:
		h.handle(http.MethodPost, "/admin/device-state", h.handleUpdateDeviceState)(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}

// handle wraps a route with method enforcement, a request-scoped logger, and
// HTTP metrics.
func (h *Handler) handle(method, route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}

		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		logger := h.log.With(
			observability.F("request_id", requestID),
			observability.F("route", route),
		)
		ctx := logctx.With(r.Context(), logger)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next(rec, r.WithContext(ctx))

		h.httpRequests.Add(1,
			observability.L("route", route),
			observability.L("method", method),
			observability.L("status", strconv.Itoa(rec.status)),
		)
		h.httpDuration.Observe(time.Since(start).Seconds(),
			observability.L("route", route),
		)

		logger.Info("http_request_done",
			observability.F("method", method),
			observability.F("status", rec.status),
			observability.F("latency_seconds", time.Since(start).Seconds()),
		)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type purchaseRequest struct {
	ProductID     string          `json:"product_id"`
	Quantity      int             `json:"quantity"`
	PaymentMethod string          `json:"payment_method"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
}

type saleResponse struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"product_id"`
	Quantity      int             `json:"quantity"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	PaymentMethod string          `json:"payment_method"`
	Status        string          `json:"status"`
	FailureReason string          `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toSaleResponse(s *domainsale.Sale) saleResponse {
	return saleResponse{
		ID:            s.ID,
		ProductID:     s.ProductID,
		Quantity:      s.Quantity,
		TotalPrice:    s.TotalPrice,
		PaymentMethod: s.PaymentMethod,
		Status:        string(s.Status),
		FailureReason: s.FailureReason,
		CreatedAt:     s.CreatedAt,
	}
}

func (h *Handler) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	recorded, err := h.purchase.Execute(r.Context(), appvending.PurchaseInput{
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		PaymentMethod: req.PaymentMethod,
		AmountPaid:    req.AmountPaid,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSaleResponse(recorded))
}

type productResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	SlotCode  string          `json:"slot_code"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toProductResponse(p *domaininventory.Product) productResponse {
	return productResponse{
		ID:        p.ID,
		Name:      p.Name,
		SlotCode:  p.SlotCode,
		Price:     p.Price,
		Quantity:  p.Quantity,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toProductResponses(products []*domaininventory.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	return out
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"
	products, err := h.inventory.ListProducts(r.Context(), activeOnly)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponses(products))
}

func (h *Handler) handleListAllProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.inventory.ListProducts(r.Context(), false)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponses(products))
}

type createProductRequest struct {
	Name     string          `json:"name"`
	SlotCode string          `json:"slot_code"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Active   *bool           `json:"active"`
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	product, err := h.inventory.CreateProduct(r.Context(), appinventory.CreateProductInput{
		Name:     req.Name,
		SlotCode: req.SlotCode,
		Price:    req.Price,
		Quantity: req.Quantity,
		Active:   active,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

type updateProductRequest struct {
	Name     *string          `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	Active   *bool            `json:"active"`
	Quantity *int             `json:"quantity"`
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/admin/products/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, errors.New("product id missing"))
		return
	}

	var req updateProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	product, err := h.inventory.UpdateProduct(r.Context(), id, appinventory.UpdateProductInput{
		Name:     req.Name,
		Price:    req.Price,
		Active:   req.Active,
		Quantity: req.Quantity,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

type stockEventResponse struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	Delta      int       `json:"delta"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (h *Handler) handleStockHistory(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/admin/products/")
	id := strings.TrimSuffix(rest, "/history")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, errors.New("product id missing"))
		return
	}

	events, err := h.inventory.StockHistory(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]stockEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, stockEventResponse{
			ID:         e.ID,
			ProductID:  e.ProductID,
			Delta:      e.Delta,
			Reason:     e.Reason,
			OccurredAt: e.OccurredAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type adjustInventoryRequest struct {
	ProductID string `json:"product_id"`
	Change    int    `json:"change"`
	Reason    string `json:"reason"`
}

func (h *Handler) handleAdjustInventory(w http.ResponseWriter, r *http.Request) {
	var req adjustInventoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	product, err := h.inventory.AdjustQuantity(r.Context(), req.ProductID, req.Change, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

type deviceStateResponse struct {
	DoorLocked bool      `json:"door_locked"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (h *Handler) handleReadDeviceState(w http.ResponseWriter, r *http.Request) {
	state, err := h.device.State(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deviceStateResponse{DoorLocked: state.DoorLocked, UpdatedAt: state.UpdatedAt})
}

type deviceStateUpdateRequest struct {
	DoorLocked bool `json:"door_locked"`
}

func (h *Handler) handleUpdateDeviceState(w http.ResponseWriter, r *http.Request) {
	var req deviceStateUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	state, err := h.device.SetLock(r.Context(), req.DoorLocked)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deviceStateResponse{DoorLocked: state.DoorLocked, UpdatedAt: state.UpdatedAt})
}

type telemetryResponse struct {
	ID           string    `json:"id"`
	TemperatureC float64   `json:"temperature_c"`
	Humidity     float64   `json:"humidity"`
	DoorOpen     bool      `json:"door_open"`
	CreatedAt    time.Time `json:"created_at"`
}

func (h *Handler) handleCaptureTelemetry(w http.ResponseWriter, r *http.Request) {
	reading, err := h.capture.Capture(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, telemetryResponse{
		ID:           reading.ID,
		TemperatureC: reading.TemperatureC,
		Humidity:     reading.Humidity,
		DoorOpen:     reading.DoorOpen,
		CreatedAt:    reading.CreatedAt,
	})
}

func (h *Handler) handleLatestTelemetry(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	trend, err := h.capture.Latest(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]telemetryResponse, 0, len(trend))
	for _, reading := range trend {
		out = append(out, telemetryResponse{
			ID:           reading.ID,
			TemperatureC: reading.TemperatureC,
			Humidity:     reading.Humidity,
			DoorOpen:     reading.DoorOpen,
			CreatedAt:    reading.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type topProductResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Units     int    `json:"units"`
}

type salesSummaryResponse struct {
	TotalSales    int                  `json:"total_sales"`
	TotalRevenue  decimal.Decimal      `json:"total_revenue"`
	AverageTicket decimal.Decimal      `json:"average_ticket"`
	TopProducts   []topProductResponse `json:"top_products"`
}

func (h *Handler) handleSalesSummary(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)
	summary, err := h.analytics.SalesSummary(r.Context(), days)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := salesSummaryResponse{
		TotalSales:    summary.TotalSales,
		TotalRevenue:  summary.TotalRevenue,
		AverageTicket: summary.AverageTicket,
		TopProducts:   make([]topProductResponse, 0, len(summary.TopProducts)),
	}
	for _, tp := range summary.TopProducts {
		resp.TopProducts = append(resp.TopProducts, topProductResponse{
			ProductID: tp.ProductID,
			Name:      tp.Name,
			Units:     tp.Units,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type turnoverItemResponse struct {
	ProductID      string    `json:"product_id"`
	Name           string    `json:"name"`
	SlotCode       string    `json:"slot_code"`
	QuantityOnHand int       `json:"quantity_on_hand"`
	SoldLastPeriod int       `json:"sold_last_period"`
	LastUpdated    time.Time `json:"last_updated"`
}

type inventoryTurnoverResponse struct {
	AsOf     time.Time              `json:"as_of"`
	Products []turnoverItemResponse `json:"products"`
}

func (h *Handler) handleInventoryTurnover(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)
	turnover, err := h.analytics.InventoryTurnover(r.Context(), days)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := inventoryTurnoverResponse{
		AsOf:     turnover.AsOf,
		Products: make([]turnoverItemResponse, 0, len(turnover.Products)),
	}
	for _, item := range turnover.Products {
		resp.Products = append(resp.Products, turnoverItemResponse{
			ProductID:      item.ProductID,
			Name:           item.Name,
			SlotCode:       item.SlotCode,
			QuantityOnHand: item.QuantityOnHand,
			SoldLastPeriod: item.SoldLastPeriod,
			LastUpdated:    item.LastUpdated,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleTelemetryTrend(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", 24)
	trend, err := h.analytics.TelemetryTrend(r.Context(), hours)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]telemetryResponse, 0, len(trend))
	for _, reading := range trend {
		out = append(out, telemetryResponse{
			ID:           reading.ID,
			TemperatureC: reading.TemperatureC,
			Humidity:     reading.Humidity,
			DoorOpen:     reading.DoorOpen,
			CreatedAt:    reading.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domaininventory.ErrNotFound),
		errors.Is(err, domainsale.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, appvending.ErrValidation),
		errors.Is(err, domaininventory.ErrSlotTaken),
		errors.Is(err, domaininventory.ErrInvalidName),
		errors.Is(err, domaininventory.ErrInvalidSlot),
		errors.Is(err, domaininventory.ErrInvalidPrice),
		errors.Is(err, domaininventory.ErrInvalidQuantity),
		errors.Is(err, domaininventory.ErrInsufficientStock),
		errors.Is(err, appinventory.ErrZeroDelta),
		errors.Is(err, appinventory.ErrReasonRequired):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
