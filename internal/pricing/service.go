// Package pricing provides the HTTP handlers and business logic for
// building lattice models, pricing option quotes, and querying the
// quote ledger.
//
// All monetary values use shopspring/decimal — never float64 for money.
package pricing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/optx/lattice-engine/internal/contract"
	"github.com/optx/lattice-engine/internal/lattice"
	"github.com/optx/lattice-engine/internal/metrics"
	"github.com/optx/lattice-engine/internal/model"
	"github.com/optx/lattice-engine/internal/parity"
	"github.com/optx/lattice-engine/internal/store"
)

// Service handles model and quote operations. Built lattice models are
// cached in memory keyed by spec ID; the store holds the parameters, so a
// cache miss rebuilds the model deterministically.
type Service struct {
	store   store.Store
	checker *parity.Checker
	wsHub   *WSHub // optional WebSocket hub for real-time broadcasts

	mu     sync.Mutex
	models map[string]*lattice.Model
}

// NewService creates a new pricing service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, checker *parity.Checker, hub *WSHub) *Service {
	return &Service{
		store:   st,
		checker: checker,
		wsHub:   hub,
		models:  make(map[string]*lattice.Model),
	}
}

// --- Request/Response types ---

// CreateModelRequest is the JSON body for model creation.
type CreateModelRequest struct {
	Rate    float64 `json:"rate"`
	Carry   float64 `json:"carry"`
	Periods int     `json:"periods"`
	TTM     float64 `json:"ttm"`
	Sigma   float64 `json:"sigma"`
}

// QuoteRequest is the JSON body for POST /quotes. Either a ticker or an
// explicit styles+strike pair identifies the contract; when both are given
// the ticker's style is priced alongside the listed ones.
type QuoteRequest struct {
	ModelID string          `json:"model_id"`
	Ticker  string          `json:"ticker,omitempty"`
	Styles  []string        `json:"styles,omitempty"`
	Spot    decimal.Decimal `json:"spot"`
	Strike  decimal.Decimal `json:"strike,omitempty"`
	Horizon *int            `json:"horizon,omitempty"` // nil → model's full period count
}

// QuoteResponse is the JSON body returned from POST /quotes.
type QuoteResponse struct {
	ModelID string        `json:"model_id"`
	Ticker  string        `json:"ticker,omitempty"`
	Horizon int           `json:"horizon"`
	Quotes  []model.Quote `json:"quotes"`
}

// ChooserRequest is the JSON body for POST /chooser.
type ChooserRequest struct {
	ModelID  string          `json:"model_id"`
	Spot     decimal.Decimal `json:"spot"`
	Strike   decimal.Decimal `json:"strike"`
	ChooseAt int             `json:"choose_at"`
	Horizon  *int            `json:"horizon,omitempty"`
}

// ChooserResponse is the JSON body returned from POST /chooser.
type ChooserResponse struct {
	ModelID   string          `json:"model_id"`
	ChooseAt  int             `json:"choose_at"`
	Horizon   int             `json:"horizon"`
	Price     decimal.Decimal `json:"price"`
	CallPrice decimal.Decimal `json:"call_price"`
	PutPrice  decimal.Decimal `json:"put_price"`
}

// --- HTTP Handlers ---

// CreateModel handles POST /api/v1/models
func (s *Service) CreateModel(w http.ResponseWriter, r *http.Request) {
	var req CreateModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	m, err := lattice.NewModel(req.Rate, req.Carry, req.Periods, req.TTM, req.Sigma)
	if errors.Is(err, lattice.ErrInvalidParameter) {
		metrics.ModelRejections.WithLabelValues("invalid_parameter").Inc()
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if errors.Is(err, lattice.ErrDegenerateModel) {
		metrics.ModelRejections.WithLabelValues("degenerate").Inc()
		writeError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	spec := &model.ModelSpec{
		ID:          uuid.New().String(),
		Rate:        req.Rate,
		Carry:       req.Carry,
		Periods:     req.Periods,
		TTM:         req.TTM,
		Sigma:       req.Sigma,
		Up:          m.U,
		Down:        m.D,
		Prob:        m.Q,
		FuturesRate: m.FuturesRate(),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.CreateModel(r.Context(), spec); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	s.mu.Lock()
	s.models[spec.ID] = m
	s.mu.Unlock()

	metrics.ModelsBuilt.Inc()
	slog.Info("model built",
		"id", spec.ID,
		"periods", spec.Periods,
		"sigma", spec.Sigma,
		"up", spec.Up,
		"prob", spec.Prob,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(spec)
}

// GetModel handles GET /api/v1/models/{modelID}
func (s *Service) GetModel(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "modelID")

	spec, err := s.store.GetModel(r.Context(), modelID)
	if err != nil {
		writeError(w, "model not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}

// ListModels handles GET /api/v1/models
func (s *Service) ListModels(w http.ResponseWriter, r *http.Request) {
	specs, err := s.store.ListModels(r.Context())
	if err != nil {
		writeError(w, "failed to list models", http.StatusInternalServerError)
		return
	}
	if specs == nil {
		specs = []model.ModelSpec{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(specs)
}

// GetLattice handles GET /api/v1/models/{modelID}/lattice
// Returns the model's rate and futures-rate lattices as jagged columns.
func (s *Service) GetLattice(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "modelID")

	m, err := s.latticeModel(r, modelID)
	if err != nil {
		writeError(w, "model not found", http.StatusNotFound)
		return
	}

	resp := map[string]interface{}{
		"model_id":     modelID,
		"periods":      m.Periods,
		"up":           m.U,
		"down":         m.D,
		"prob":         m.Q,
		"futures_rate": m.FuturesRate(),
		"rate":         m.RateColumns(),
		"futures":      m.FuturesColumns(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// CreateQuote handles POST /api/v1/quotes
// Prices the requested styles on the model and appends one immutable quote
// per style to the ledger.
func (s *Service) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// --- Input validation ---
	if req.ModelID == "" {
		writeError(w, "model_id is required", http.StatusBadRequest)
		return
	}
	if !req.Spot.IsPositive() {
		writeError(w, "spot must be positive", http.StatusBadRequest)
		return
	}

	strike := req.Strike
	styles := make([]lattice.Style, 0, len(req.Styles)+1)
	for _, tag := range req.Styles {
		st, err := lattice.ParseStyle(tag)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		styles = append(styles, st)
	}

	// A ticker contributes its style and strike.
	if req.Ticker != "" {
		parsed, err := contract.ParseTicker(req.Ticker)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		styles = append(styles, parsed.Style)
		if strike.IsZero() {
			strike = parsed.Strike
		}
	}

	if len(styles) == 0 {
		writeError(w, "at least one style or a ticker is required", http.StatusBadRequest)
		return
	}
	if !strike.IsPositive() {
		writeError(w, "strike must be positive", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	m, err := s.latticeModel(r, req.ModelID)
	if err != nil {
		writeError(w, "model not found: "+req.ModelID, http.StatusNotFound)
		return
	}

	horizon := m.Periods
	if req.Horizon != nil {
		horizon = *req.Horizon
	}

	start := time.Now()
	lattices, err := m.PriceToHorizon(req.Spot, strike, horizon, styles...)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	elapsed := time.Since(start).Seconds()

	// No-arbitrage checks on whatever pairs this request priced. Violations
	// are logged and counted, not rejected: the quotes are still the
	// model's answer.
	s.runParityChecks(m, lattices, req.Spot.InexactFloat64(), strike.InexactFloat64(), horizon)

	now := time.Now().UTC()
	quotes := make([]model.Quote, 0, len(lattices))
	for st, vl := range lattices {
		metrics.QuotesTotal.WithLabelValues(string(st)).Inc()
		metrics.PricingLatency.WithLabelValues(string(st)).Observe(elapsed)

		q := model.Quote{
			ID:        uuid.New().String(),
			ModelID:   req.ModelID,
			Ticker:    req.Ticker,
			Style:     string(st),
			Spot:      req.Spot,
			Strike:    strike,
			Horizon:   horizon,
			Price:     vl.Root(),
			Timestamp: now,
		}
		if err := s.store.InsertQuote(ctx, &q); err != nil {
			writeError(w, "failed to record quote", http.StatusInternalServerError)
			return
		}
		quotes = append(quotes, q)

		slog.Info("quote priced",
			"quote_id", q.ID,
			"model", req.ModelID,
			"style", q.Style,
			"spot", q.Spot.String(),
			"strike", q.Strike.String(),
			"horizon", horizon,
			"price", q.Price.String(),
		)

		if s.wsHub != nil {
			s.wsHub.Broadcast(WSMessage{
				Type:    "quote_priced",
				ModelID: req.ModelID,
				Ticker:  req.Ticker,
				Style:   q.Style,
				Spot:    q.Spot.String(),
				Strike:  q.Strike.String(),
				Horizon: horizon,
				Price:   q.Price.String(),
			})
		}
	}

	resp := QuoteResponse{
		ModelID: req.ModelID,
		Ticker:  req.Ticker,
		Horizon: horizon,
		Quotes:  quotes,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// QuoteHistory handles GET /api/v1/quotes/{modelID}
// Returns the immutable quote ledger for a model.
func (s *Service) QuoteHistory(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "modelID")

	quotes, err := s.store.GetQuotesByModel(r.Context(), modelID)
	if err != nil {
		writeError(w, "failed to get quote history", http.StatusInternalServerError)
		return
	}
	if quotes == nil {
		quotes = []model.Quote{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(quotes)
}

// QuotesByTicker handles GET /api/v1/quotes?ticker=OPTX-...
func (s *Service) QuotesByTicker(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	if ticker == "" {
		writeError(w, "ticker query parameter is required", http.StatusBadRequest)
		return
	}

	quotes, err := s.store.GetQuotesByTicker(r.Context(), ticker)
	if err != nil {
		writeError(w, "failed to get quotes", http.StatusInternalServerError)
		return
	}
	if quotes == nil {
		quotes = []model.Quote{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(quotes)
}

// Chooser handles POST /api/v1/chooser
// Prices a simple chooser: european call and put on the same strike, with
// the call/put election made at the choose_at column.
func (s *Service) Chooser(w http.ResponseWriter, r *http.Request) {
	var req ChooserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ModelID == "" {
		writeError(w, "model_id is required", http.StatusBadRequest)
		return
	}
	if !req.Spot.IsPositive() || !req.Strike.IsPositive() {
		writeError(w, "spot and strike must be positive", http.StatusBadRequest)
		return
	}

	m, err := s.latticeModel(r, req.ModelID)
	if err != nil {
		writeError(w, "model not found: "+req.ModelID, http.StatusNotFound)
		return
	}

	horizon := m.Periods
	if req.Horizon != nil {
		horizon = *req.Horizon
	}

	lattices, err := m.PriceToHorizon(req.Spot, req.Strike, horizon,
		lattice.EuropeanCall, lattice.EuropeanPut)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	call := lattices[lattice.EuropeanCall]
	put := lattices[lattice.EuropeanPut]

	chooser, err := m.Chooser(call, put, req.ChooseAt)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	slog.Info("chooser priced",
		"model", req.ModelID,
		"choose_at", req.ChooseAt,
		"horizon", horizon,
		"price", chooser.Root().String(),
	)

	resp := ChooserResponse{
		ModelID:   req.ModelID,
		ChooseAt:  req.ChooseAt,
		Horizon:   horizon,
		Price:     chooser.Root(),
		CallPrice: call.Root(),
		PutPrice:  put.Root(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// --- Helpers ---

// latticeModel resolves a built model by spec ID, rebuilding from the
// stored parameters on cache miss.
func (s *Service) latticeModel(r *http.Request, id string) (*lattice.Model, error) {
	s.mu.Lock()
	m, ok := s.models[id]
	s.mu.Unlock()
	if ok {
		return m, nil
	}

	spec, err := s.store.GetModel(r.Context(), id)
	if err != nil {
		return nil, err
	}

	m, err = lattice.NewModel(spec.Rate, spec.Carry, spec.Periods, spec.TTM, spec.Sigma)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.models[id] = m
	s.mu.Unlock()
	return m, nil
}

// runParityChecks validates priced call/put and american/european pairs.
func (s *Service) runParityChecks(m *lattice.Model, lattices map[lattice.Style]*lattice.ValueLattice, spot, strike float64, horizon int) {
	if s.checker == nil {
		return
	}

	call, hasCall := lattices[lattice.EuropeanCall]
	put, hasPut := lattices[lattice.EuropeanPut]
	if hasCall && hasPut {
		if err := s.checker.CheckPutCall(m, call, put, spot, strike, horizon); err != nil {
			metrics.ParityViolations.Inc()
			slog.Warn("parity check failed", "err", err)
		}
	}

	pairs := []struct{ american, european lattice.Style }{
		{lattice.AmericanCall, lattice.EuropeanCall},
		{lattice.AmericanPut, lattice.EuropeanPut},
	}
	for _, p := range pairs {
		am, hasAm := lattices[p.american]
		eu, hasEu := lattices[p.european]
		if hasAm && hasEu {
			if err := s.checker.CheckEarlyExercise(am, eu); err != nil {
				metrics.ParityViolations.Inc()
				slog.Warn("early exercise check failed", "style", string(p.american), "err", err)
			}
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
