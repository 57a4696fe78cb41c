package httpserver

import (
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// defaultTradeLimit caps /api/trades responses when no limit is given.
const defaultTradeLimit = 20

// StatusHandler handles HTTP requests for engine status and trade history.
type StatusHandler struct {
	status StatusProvider
	logger *zap.Logger
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(status StatusProvider, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		status: status,
		logger: logger,
	}
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleStatus handles GET /api/status requests.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := h.status.GetStatus(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err := json.NewEncoder(w).Encode(snapshot)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// tradeRecordView is the wire form of one trade log entry.
type tradeRecordView struct {
	ID             string  `json:"id"`
	Timestamp      string  `json:"timestamp"`
	Pair           string  `json:"pair"`
	BuyVenue       string  `json:"buy_venue"`
	SellVenue      string  `json:"sell_venue"`
	TradeAmount    float64 `json:"trade_amount"`
	BuyPrice       float64 `json:"buy_price"`
	SellPrice      float64 `json:"sell_price"`
	RealizedProfit float64 `json:"realized_profit"`
	Success        bool    `json:"success"`
	ErrorKind      string  `json:"error_kind,omitempty"`
	ErrorMessage   string  `json:"error_message,omitempty"`
}

// HandleTrades handles GET /api/trades?limit=<n> requests.
func (h *StatusHandler) HandleTrades(w http.ResponseWriter, r *http.Request) {
	limit := defaultTradeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records := h.status.RecentTrades(limit)

	views := make([]tradeRecordView, 0, len(records))
	for _, record := range records {
		view := tradeRecordView{
			ID:             record.ID,
			Timestamp:      record.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			Pair:           record.Pair.String(),
			BuyVenue:       record.BuyVenue,
			SellVenue:      record.SellVenue,
			TradeAmount:    record.TradeAmount,
			BuyPrice:       record.BuyPrice,
			SellPrice:      record.SellPrice,
			RealizedProfit: record.RealizedProfit,
			Success:        record.Success,
		}
		if record.Error != nil {
			view.ErrorKind = string(record.Error.Kind)
			view.ErrorMessage = record.Error.Message
		}
		views = append(views, view)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err := json.NewEncoder(w).Encode(views)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *StatusHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Error: message}
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
