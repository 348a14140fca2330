package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"toolprice-service/internal/application"
	"toolprice-service/internal/domain"
	"toolprice-service/internal/infrastructure/httpx"
)

// CBRProvider reads the daily JSON feed of the Central Bank of Russia. Only
// rates quoted in RUB are available.
type CBRProvider struct {
	URL    string
	Client *httpx.Client
}

var _ application.RateProvider = (*CBRProvider)(nil)

type cbrDaily struct {
	Date   time.Time `json:"Date"`
	Valute map[string]struct {
		Nominal float64 `json:"Nominal"`
		Value   float64 `json:"Value"`
	} `json:"Valute"`
}

func (p *CBRProvider) Get(ctx context.Context, pair string) (domain.Quote, error) {
	if p.URL == "" {
		return domain.Quote{}, errors.New("cbr: missing configuration")
	}
	base, quote, ok := domain.SplitPair(pair)
	if !ok || quote != "RUB" || !domain.ValidatePair(pair) {
		return domain.Quote{}, fmt.Errorf("cbr: %w: %s", domain.ErrUnsupportedPair, pair)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("cbr: create request: %w", err)
	}
	client := p.Client
	if client == nil {
		client = &httpx.Client{}
	}
	var body cbrDaily
	if err := client.DoJSON(ctx, req, &body); err != nil {
		return domain.Quote{}, fmt.Errorf("cbr: %w", err)
	}

	v, ok := body.Valute[base]
	if !ok {
		return domain.Quote{}, fmt.Errorf("cbr: missing rate for %s", base)
	}
	price := v.Value
	if v.Nominal > 1 {
		price = v.Value / v.Nominal
	}

	updatedAt := time.Now().UTC()
	if !body.Date.IsZero() {
		updatedAt = body.Date.UTC()
	}
	return domain.Quote{Pair: domain.Pair(pair), Price: price, UpdatedAt: updatedAt}, nil
}
