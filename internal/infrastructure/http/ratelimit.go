package httpserver

import (
	"net/http"

	"toolprice-service/internal/infrastructure/logx"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// NewWriteLimiter builds an in-process limiter from a "<limit>-<period>"
// formatted rate such as "30-M".
func NewWriteLimiter(formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	return limiter.New(memory.NewStore(), rate), nil
}

func rateLimit(l *limiter.Limiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	mw := stdlib.NewMiddleware(l,
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			logx.WithFields(r.Context()).Error("http.rate_limit_failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			logx.WithFields(r.Context()).Warn("http.rate_limited", zap.String("path", r.URL.Path))
			writeError(w, http.StatusTooManyRequests, "too many requests")
		}),
	)
	return mw.Handler
}
