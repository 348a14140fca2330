package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"toolprice-service/internal/application"
	"toolprice-service/internal/domain"
	"toolprice-service/internal/infrastructure/httpx"
)

// ExchangeRatesAPIProvider is the alternative USD/RUB source. The free
// exchangeratesapi.io plan only serves EUR-based tables, so the rate is the
// RUB leg divided by the USD leg.
type ExchangeRatesAPIProvider struct {
	BaseURL string
	APIKey  string
	Client  *httpx.Client
}

var _ application.RateProvider = (*ExchangeRatesAPIProvider)(nil)

type eurTable struct {
	Success   bool               `json:"success"`
	Timestamp int64              `json:"timestamp"`
	Rates     map[string]float64 `json:"rates"`
	Error     *struct {
		Code int    `json:"code"`
		Info string `json:"info"`
	} `json:"error,omitempty"`
}

func (t eurTable) leg(currency string) (float64, error) {
	v, ok := t.Rates[currency]
	if !ok || !domain.UsableRate(v) {
		return 0, fmt.Errorf("exchangeratesapi: missing rate for %s", currency)
	}
	return v, nil
}

func (p *ExchangeRatesAPIProvider) latestURL() (string, error) {
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return "", fmt.Errorf("exchangeratesapi: invalid base url: %w", err)
	}
	u.Path = "/v1/latest"
	u.RawQuery = url.Values{"access_key": {p.APIKey}, "symbols": {"USD,RUB"}}.Encode()
	return u.String(), nil
}

func (p *ExchangeRatesAPIProvider) Get(ctx context.Context, pair string) (domain.Quote, error) {
	if p.BaseURL == "" || p.APIKey == "" {
		return domain.Quote{}, errors.New("exchangeratesapi: missing configuration")
	}
	if domain.Pair(pair) != domain.PairUSDRUB {
		return domain.Quote{}, fmt.Errorf("exchangeratesapi: %w: %s", domain.ErrUnsupportedPair, pair)
	}

	endpoint, err := p.latestURL()
	if err != nil {
		return domain.Quote{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("exchangeratesapi: create request: %w", err)
	}
	client := p.Client
	if client == nil {
		client = &httpx.Client{}
	}

	var table eurTable
	if err := client.DoJSON(ctx, req, &table); err != nil {
		return domain.Quote{}, fmt.Errorf("exchangeratesapi: %w", err)
	}
	if !table.Success {
		if table.Error != nil {
			return domain.Quote{}, fmt.Errorf("exchangeratesapi: %d %s", table.Error.Code, table.Error.Info)
		}
		return domain.Quote{}, errors.New("exchangeratesapi: unsuccessful response")
	}

	usd, err := table.leg("USD")
	if err != nil {
		return domain.Quote{}, err
	}
	rub, err := table.leg("RUB")
	if err != nil {
		return domain.Quote{}, err
	}

	asOf := time.Now().UTC()
	if table.Timestamp > 0 {
		asOf = time.Unix(table.Timestamp, 0).UTC()
	}
	return domain.Quote{Pair: domain.PairUSDRUB, Price: rub / usd, UpdatedAt: asOf}, nil
}
