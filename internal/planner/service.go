// Package planner provides the HTTP handlers and business logic for
// managing providers, quoting provider costs, sizing investments, and
// comparing results.
//
// All monetary values use shopspring/decimal — never float64 for money.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finsizer/sizing-engine/internal/costing"
	"github.com/finsizer/sizing-engine/internal/dec"
	"github.com/finsizer/sizing-engine/internal/diff"
	"github.com/finsizer/sizing-engine/internal/metrics"
	"github.com/finsizer/sizing-engine/internal/model"
	"github.com/finsizer/sizing-engine/internal/overlap"
	"github.com/finsizer/sizing-engine/internal/rates"
	"github.com/finsizer/sizing-engine/internal/sizing"
	"github.com/finsizer/sizing-engine/internal/store"
)

// RateSource resolves live exchange rates. Satisfied by *rates.Client;
// nil disables the rates endpoint.
type RateSource interface {
	GetRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Service handles planner operations.
type Service struct {
	store store.Store
	agg   *costing.Aggregator
	rates RateSource
	wsHub *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates a new planner service.
// Pass nil for rateSource and hub when those features are not needed.
func NewService(st store.Store, agg *costing.Aggregator, rateSource RateSource, hub *WSHub) *Service {
	return &Service{
		store: st,
		agg:   agg,
		rates: rateSource,
		wsHub: hub,
	}
}

// --- Request/Response types ---

// QuoteRequest is the JSON body for POST /quote.
type QuoteRequest struct {
	ProviderID        string           `json:"provider_id"`
	TransactionAmount decimal.Decimal  `json:"transaction_amount"`
	CurrencyRate      *decimal.Decimal `json:"currency_rate,omitempty"` // default: settings rate
	AsOf              *time.Time       `json:"as_of,omitempty"`         // default: now
}

// SizeRequest is the JSON body for POST /size. When ProviderID is set the
// provider's net cost is quoted on the available amount; otherwise NetCost
// is taken as given (zero when absent).
type SizeRequest struct {
	ProviderID      string           `json:"provider_id,omitempty"`
	AvailableAmount decimal.Decimal  `json:"available_amount"`
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	NetCost         *decimal.Decimal `json:"net_cost,omitempty"`
	CurrencyRate    *decimal.Decimal `json:"currency_rate,omitempty"`
	AsOf            *time.Time       `json:"as_of,omitempty"`
}

// SizeResponse is the JSON body returned from POST /size.
type SizeResponse struct {
	sizing.Result
	NetCost decimal.Decimal `json:"net_cost"`
	Quote   *costing.Quote  `json:"quote,omitempty"`
}

// DifferenceRequest is the JSON body for POST /difference.
// Mode selects between plain comparison ("compare", the default) and
// chained fractional growth ("cumulative").
type DifferenceRequest struct {
	From decimal.Decimal `json:"from"`
	To   decimal.Decimal `json:"to"`
	Mode string          `json:"mode,omitempty"`
}

// DifferenceResponse is the JSON body returned from POST /difference.
type DifferenceResponse struct {
	AbsoluteDifference decimal.Decimal  `json:"absolute_difference"`
	RelativeDifference *decimal.Decimal `json:"relative_difference,omitempty"`
	RelativeDisplay    string           `json:"relative_display,omitempty"`
	Cumulative         *decimal.Decimal `json:"cumulative,omitempty"`
	ProductDifference  *decimal.Decimal `json:"product_difference,omitempty"`
}

// RateResponse is the JSON body returned from GET /rates/{from}/{to}.
type RateResponse struct {
	From string          `json:"from"`
	To   string          `json:"to"`
	Rate decimal.Decimal `json:"rate"`
}

// --- Provider handlers ---

// CreateProvider handles POST /api/v1/providers
func (s *Service) CreateProvider(w http.ResponseWriter, r *http.Request) {
	var p model.Provider
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	for i := range p.Components {
		if p.Components[i].ID == "" {
			p.Components[i].ID = uuid.New().String()
		}
	}

	if problems := p.Validate(); len(problems) > 0 {
		metrics.ValidationFailuresTotal.WithLabelValues("provider").Inc()
		writeProblems(w, problems)
		return
	}

	ctx := r.Context()
	existing, err := s.store.ListProviders(ctx)
	if err != nil {
		writeError(w, "failed to list providers", http.StatusInternalServerError)
		return
	}
	if err := overlap.Check(p, existing); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	if err := s.store.CreateProvider(ctx, &p); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	slog.Info("provider created",
		"id", p.ID,
		"name", p.Name,
		"basis", string(p.Basis),
		"components", len(p.Components),
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{Type: EventProviderSaved, ProviderID: p.ID})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(p)
}

// GetProvider handles GET /api/v1/providers/{providerID}
func (s *Service) GetProvider(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	p, err := s.store.GetProvider(r.Context(), providerID)
	if err != nil {
		writeError(w, "provider not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// ListProviders handles GET /api/v1/providers
// Returns all providers, or only those active on ?active_on=YYYY-MM-DD.
func (s *Service) ListProviders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		providers []model.Provider
		err       error
	)
	if activeOn := r.URL.Query().Get("active_on"); activeOn != "" {
		date, perr := time.Parse("2006-01-02", activeOn)
		if perr != nil {
			writeError(w, "active_on must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		providers, err = s.store.ListActiveProviders(ctx, date)
	} else {
		providers, err = s.store.ListProviders(ctx)
	}
	if err != nil {
		writeError(w, "failed to list providers", http.StatusInternalServerError)
		return
	}
	if providers == nil {
		providers = []model.Provider{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(providers)
}

// UpdateProvider handles PUT /api/v1/providers/{providerID}
func (s *Service) UpdateProvider(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	var p model.Provider
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p.ID = providerID
	for i := range p.Components {
		if p.Components[i].ID == "" {
			p.Components[i].ID = uuid.New().String()
		}
	}

	if problems := p.Validate(); len(problems) > 0 {
		metrics.ValidationFailuresTotal.WithLabelValues("provider").Inc()
		writeProblems(w, problems)
		return
	}

	ctx := r.Context()
	existing, err := s.store.ListProviders(ctx)
	if err != nil {
		writeError(w, "failed to list providers", http.StatusInternalServerError)
		return
	}
	if err := overlap.Check(p, existing); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	if err := s.store.UpdateProvider(ctx, &p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "provider not found", http.StatusNotFound)
			return
		}
		writeError(w, "failed to update provider", http.StatusInternalServerError)
		return
	}

	slog.Info("provider updated", "id", p.ID, "name", p.Name)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{Type: EventProviderSaved, ProviderID: p.ID})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// DeleteProvider handles DELETE /api/v1/providers/{providerID}
func (s *Service) DeleteProvider(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	if err := s.store.DeleteProvider(r.Context(), providerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "provider not found", http.StatusNotFound)
			return
		}
		writeError(w, "failed to delete provider", http.StatusInternalServerError)
		return
	}

	slog.Info("provider deleted", "id", providerID)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{Type: EventProviderDeleted, ProviderID: providerID})
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Calculation handlers ---

// Quote handles POST /api/v1/quote
// Computes the full cost breakdown of a provider for a transaction amount.
func (s *Service) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProviderID == "" {
		writeError(w, "provider_id is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	p, err := s.store.GetProvider(ctx, req.ProviderID)
	if err != nil {
		writeError(w, "provider not found", http.StatusNotFound)
		return
	}

	rate, err := s.resolveRate(ctx, req.CurrencyRate)
	if err != nil {
		writeError(w, "failed to load settings", http.StatusInternalServerError)
		return
	}
	asOf := time.Now().UTC()
	if req.AsOf != nil {
		asOf = req.AsOf.UTC()
	}

	quote := s.agg.Aggregate(*p, req.TransactionAmount, rate, asOf)
	metrics.QuotesTotal.WithLabelValues(string(p.Basis)).Inc()

	slog.Info("quote computed",
		"provider", p.ID,
		"amount", req.TransactionAmount.String(),
		"net_cost", quote.NetCost.String(),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(quote)
}

// Size handles POST /api/v1/size
// Computes purchasable units and leftover capital, optionally quoting a
// provider's net cost first. Settings with apply_cost disabled force the
// net cost to zero regardless of the provider.
func (s *Service) Size(w http.ResponseWriter, r *http.Request) {
	var req SizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		writeError(w, "failed to load settings", http.StatusInternalServerError)
		return
	}

	rate := settings.CurrencyRate
	if req.CurrencyRate != nil {
		rate = *req.CurrencyRate
	}

	netCost := decimal.Zero
	if req.NetCost != nil {
		netCost = *req.NetCost
	}

	var quote *costing.Quote
	if req.ProviderID != "" {
		p, err := s.store.GetProvider(ctx, req.ProviderID)
		if err != nil {
			writeError(w, "provider not found", http.StatusNotFound)
			return
		}
		asOf := time.Now().UTC()
		if req.AsOf != nil {
			asOf = req.AsOf.UTC()
		}
		q := s.agg.Aggregate(*p, req.AvailableAmount, rate, asOf)
		quote = &q
		netCost = q.NetCost
		metrics.QuotesTotal.WithLabelValues(string(p.Basis)).Inc()
	}

	if !settings.ApplyCost {
		netCost = decimal.Zero
	}

	result := sizing.Size(sizing.Input{
		AvailableAmount: req.AvailableAmount,
		NetCost:         netCost,
		CurrencyRate:    rate,
		UnitPrice:       req.UnitPrice,
	})
	metrics.SizingsTotal.Inc()

	slog.Info("sizing computed",
		"available", req.AvailableAmount.String(),
		"net_cost", netCost.String(),
		"units", result.UnitsPurchasable,
		"remaining", result.RemainingAmount.String(),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SizeResponse{Result: result, NetCost: netCost, Quote: quote})
}

// Difference handles POST /api/v1/difference
// Default mode compares two values; "cumulative" chains a fractional
// growth onto a starting value instead.
func (s *Service) Difference(w http.ResponseWriter, r *http.Request) {
	var req DifferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = "compare"
	}

	var resp DifferenceResponse
	switch mode {
	case "compare":
		res := diff.Compare(req.From, req.To)
		resp.AbsoluteDifference = res.AbsoluteDifference
		resp.RelativeDifference = res.RelativeDifference
		if res.RelativeDifference != nil {
			resp.RelativeDisplay = diff.FormatPercent(*res.RelativeDifference, 2, dec.LocaleDot)
		}
	case "cumulative":
		cum := diff.Cumulative(req.From, req.To)
		prod := diff.ProductDifference(req.From, req.To)
		resp.AbsoluteDifference = cum.Sub(req.From)
		resp.Cumulative = &cum
		resp.ProductDifference = &prod
	default:
		writeError(w, "mode must be compare or cumulative", http.StatusBadRequest)
		return
	}

	metrics.DifferencesTotal.WithLabelValues(mode).Inc()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// --- Settings handlers ---

// GetSettings handles GET /api/v1/settings
func (s *Service) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		writeError(w, "failed to load settings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}

// SaveSettings handles PUT /api/v1/settings
// Normalizes before validating, so a single-currency save never trips the
// transaction-currency check.
func (s *Service) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	settings = settings.Normalize()
	if problems := settings.Validate(); len(problems) > 0 {
		metrics.ValidationFailuresTotal.WithLabelValues("settings").Inc()
		writeProblems(w, problems)
		return
	}

	if err := s.store.SaveSettings(r.Context(), &settings); err != nil {
		writeError(w, "failed to save settings", http.StatusInternalServerError)
		return
	}

	slog.Info("settings saved",
		"base", settings.BaseCurrency,
		"transaction", settings.TransactionCurrency,
		"double_currency", settings.DoubleCurrency,
		"apply_cost", settings.ApplyCost,
		"rate", settings.CurrencyRate.String(),
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{Type: EventSettingsSaved})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}

// --- Rate handler ---

// GetRate handles GET /api/v1/rates/{from}/{to}
func (s *Service) GetRate(w http.ResponseWriter, r *http.Request) {
	if s.rates == nil {
		writeError(w, "rate lookups are not configured", http.StatusServiceUnavailable)
		return
	}

	from := chi.URLParam(r, "from")
	to := chi.URLParam(r, "to")

	rate, err := s.rates.GetRate(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, rates.ErrUnknownCurrency) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeError(w, "rate unavailable", http.StatusBadGateway)
		return
	}

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:     EventRateUpdated,
			Currency: from + ":" + to,
			Rate:     dec.Canonical(rate),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(RateResponse{From: from, To: to, Rate: rate})
}

// resolveRate picks the request override when present, the stored settings
// rate otherwise.
func (s *Service) resolveRate(ctx context.Context, override *decimal.Decimal) (decimal.Decimal, error) {
	if override != nil {
		return *override, nil
	}
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return settings.CurrencyRate, nil
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeProblems writes validation messages as a JSON 422 response.
func writeProblems(w http.ResponseWriter, problems []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	json.NewEncoder(w).Encode(map[string][]string{"problems": problems})
}
