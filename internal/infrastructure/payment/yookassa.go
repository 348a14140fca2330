package payment

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"toolprice-service/internal/application"
	"toolprice-service/internal/domain"
	"toolprice-service/internal/infrastructure/httpx"

	"go.uber.org/zap"
)

const paymentsPath = "/v3/payments/"

// YooKassa reads payment records from the YooKassa API using HTTP Basic auth
// with the shop id and secret key.
type YooKassa struct {
	BaseURL   string
	ShopID    string
	SecretKey string
	Client    *httpx.Client
	Log       *zap.Logger
}

var _ application.PaymentGateway = (*YooKassa)(nil)

type paymentResp struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Paid   bool   `json:"paid"`
}

func (g *YooKassa) configured() bool {
	return g.BaseURL != "" && g.ShopID != "" && g.SecretKey != ""
}

func (g *YooKassa) logger() *zap.Logger {
	if g.Log == nil {
		return zap.NewNop()
	}
	return g.Log
}

// FetchStatus returns ok=false when credentials are incomplete, the call
// fails or the gateway answers non-2xx.
func (g *YooKassa) FetchStatus(ctx context.Context, paymentID string) (domain.PaymentStatus, bool) {
	log := g.logger().With(zap.String("payment_id", paymentID))
	if !g.configured() {
		log.Warn("payment_gateway.not_configured")
		return domain.PaymentStatus{}, false
	}
	if paymentID == "" {
		return domain.PaymentStatus{}, false
	}

	endpoint := strings.TrimRight(g.BaseURL, "/") + paymentsPath + url.PathEscape(paymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		log.Warn("payment_gateway.bad_request", zap.Error(err))
		return domain.PaymentStatus{}, false
	}
	req.SetBasicAuth(g.ShopID, g.SecretKey)
	req.Header.Set("Accept", "application/json")

	client := g.Client
	if client == nil {
		client = &httpx.Client{}
	}
	var body paymentResp
	if err := client.DoJSON(ctx, req, &body); err != nil {
		switch {
		case httpx.IsStatus(err, http.StatusNotFound):
			log.Info("payment_gateway.payment_not_found")
		case httpx.IsStatus(err, http.StatusUnauthorized), httpx.IsStatus(err, http.StatusForbidden):
			log.Error("payment_gateway.auth_rejected", zap.Error(err))
		default:
			log.Warn("payment_gateway.non_2xx", zap.Error(err))
		}
		return domain.PaymentStatus{}, false
	}

	id := body.ID
	if id == "" {
		id = paymentID
	}
	return domain.NewPaymentStatus(id, body.Status), true
}
