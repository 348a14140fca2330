package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"toolprice-service/internal/application"
	"toolprice-service/internal/domain"
	"toolprice-service/internal/infrastructure/logx"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
)

const statusRetryAfter = "30"

type Server struct {
	pricing  *application.PricingService
	payments *application.PaymentService
	rates    application.RateSource

	idem       application.IdempotencyStore
	ping       func(ctx context.Context) error
	jwtSecret  string
	writeLimit *limiter.Limiter
	timeout    time.Duration
	validate   *validator.Validate
}

type ServerOption func(*Server)

func WithIdempotency(s application.IdempotencyStore) ServerOption {
	return func(srv *Server) { srv.idem = s }
}

func WithReadyCheck(fn func(ctx context.Context) error) ServerOption {
	return func(srv *Server) { srv.ping = fn }
}

func WithJWTSecret(secret string) ServerOption { return func(srv *Server) { srv.jwtSecret = secret } }

func WithWriteLimiter(l *limiter.Limiter) ServerOption {
	return func(srv *Server) { srv.writeLimit = l }
}

func WithRequestTimeout(d time.Duration) ServerOption { return func(srv *Server) { srv.timeout = d } }

func NewServer(pricing *application.PricingService, payments *application.PaymentService, rates application.RateSource, opts ...ServerOption) *Server {
	s := &Server{
		pricing:  pricing,
		payments: payments,
		rates:    rates,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.idem == nil {
		s.idem = application.NoopIdempotency{}
	}
	return s
}

type priceResponse struct {
	ToolID      string     `json:"tool_id"`
	BaselineUSD *float64   `json:"baseline_usd"`
	ResultLocal *int64     `json:"result_local"`
	Rate        *float64   `json:"rate"`
	Source      string     `json:"source"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

func toPriceResponse(p domain.ResolvedPrice) priceResponse {
	return priceResponse{
		ToolID:      p.ToolID,
		BaselineUSD: p.BaselineUSD,
		ResultLocal: p.ResultLocal,
		Rate:        p.Rate,
		Source:      string(p.Source),
		UpdatedAt:   p.UpdatedAt,
	}
}

type setPriceRequest struct {
	BaselineUSD *float64 `json:"baseline_usd" validate:"required,gt=0"`
	Rate        *float64 `json:"rate,omitempty"`
}

type purchaseRequest struct {
	ToolID    string `json:"tool_id" validate:"required,max=128"`
	PaymentID string `json:"payment_id" validate:"required,max=128"`
}

type purchaseResponse struct {
	ID          string    `json:"id"`
	ToolID      string    `json:"tool_id"`
	PaymentID   string    `json:"payment_id"`
	AmountLocal int64     `json:"amount_local"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type paymentStatusResponse struct {
	PaymentID      string `json:"payment_id"`
	LifecycleState string `json:"lifecycle_state"`
	Paid           bool   `json:"paid"`
	ProviderStatus string `json:"provider_status,omitempty"`
}

// decodeBody decodes and validates a JSON body into dst.
func (s *Server) decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body", application.ErrInvalidInput)
	}
	if err := s.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", application.ErrInvalidInput, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "validation failed"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func (s *Server) GetPrice(w http.ResponseWriter, r *http.Request) {
	p, err := s.pricing.ResolvePrice(r.Context(), UserID(r.Context()), chi.URLParam(r, "toolID"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPriceResponse(p))
}

func (s *Server) SetPersonalPrice(w http.ResponseWriter, r *http.Request) {
	var body setPriceRequest
	if err := s.decodeBody(r, &body); err != nil {
		writeAppError(w, r, err)
		return
	}
	p, err := s.pricing.SetPersonalPrice(r.Context(), UserID(r.Context()), chi.URLParam(r, "toolID"), *body.BaselineUSD, body.Rate)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPriceResponse(p))
}

func (s *Server) SetBasePrice(w http.ResponseWriter, r *http.Request) {
	var body setPriceRequest
	if err := s.decodeBody(r, &body); err != nil {
		writeAppError(w, r, err)
		return
	}
	p, err := s.pricing.SetBasePrice(r.Context(), chi.URLParam(r, "toolID"), *body.BaselineUSD, body.Rate)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPriceResponse(p))
}

func (s *Server) GetRate(w http.ResponseWriter, r *http.Request) {
	rate := s.rates.Rate(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"pair":       string(domain.PairUSDRUB),
		"value":      rate.Value,
		"fetched_at": rate.FetchedAt,
	})
}

// GetPaymentStatus never reports a gateway failure as an error: an unknown
// status is answered with lifecycle_state "unknown" and a Retry-After hint.
func (s *Server) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")
	st, ok := s.payments.Status(r.Context(), paymentID)
	if !ok {
		logx.WithFields(r.Context()).Info("payment_status.unknown", zap.String("payment_id", paymentID))
		w.Header().Set("Retry-After", statusRetryAfter)
		writeJSON(w, http.StatusOK, paymentStatusResponse{PaymentID: paymentID, LifecycleState: "unknown"})
		return
	}
	writeJSON(w, http.StatusOK, paymentStatusResponse{
		PaymentID:      st.ProviderID,
		LifecycleState: string(st.LifecycleState),
		Paid:           st.Paid,
		ProviderStatus: st.RawProviderStatus,
	})
}

func toPurchaseResponse(p domain.Purchase) purchaseResponse {
	return purchaseResponse{
		ID:          p.ID,
		ToolID:      p.ToolID,
		PaymentID:   p.PaymentID,
		AmountLocal: p.AmountLocal,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
	}
}

func (s *Server) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	var body purchaseRequest
	if err := s.decodeBody(r, &body); err != nil {
		writeAppError(w, r, err)
		return
	}
	p, err := s.payments.RecordPurchase(r.Context(), UserID(r.Context()), body.ToolID, body.PaymentID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPurchaseResponse(p))
}

// ReconcilePayment settles the caller's purchase without waiting for the
// worker. A gateway that cannot answer leaves it pending.
func (s *Server) ReconcilePayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.payments.ReconcileByPaymentID(r.Context(), UserID(r.Context()), chi.URLParam(r, "paymentID"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if p.Status == domain.LifecyclePending {
		w.Header().Set("Retry-After", statusRetryAfter)
	}
	writeJSON(w, http.StatusOK, toPurchaseResponse(p))
}

func (s *Server) GetAccess(w http.ResponseWriter, r *http.Request) {
	toolID := chi.URLParam(r, "toolID")
	ok, err := s.payments.HasAccess(r.Context(), UserID(r.Context()), toolID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tool_id": toolID, "has_access": ok})
}
