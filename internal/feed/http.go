package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/observability"
	"ops-analytics/internal/window"
)

const tradesEndpoint = "/trades"

// HTTPOptions configures an HTTPLedger.
type HTTPOptions struct {
	BaseURL       string
	Token         string        // optional bearer token
	Timeout       time.Duration // per request; default 10s
	RatePerSecond float64       // request budget; <= 0 disables limiting
	RetryCount    int
	Metrics       *observability.Metrics
	Logger        logrus.FieldLogger
}

// HTTPLedger pulls trades from a remote feed over HTTP.
//
// Requests are rate limited, retried on 429/5xx, and wrapped in a circuit breaker
// that opens after consecutive failures. Every failure surfaces as ErrFeedUnavailable.
type HTTPLedger struct {
	client  *resty.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Metrics
	logger  logrus.FieldLogger
}

// NewHTTPLedger creates a remote ledger client.
func NewHTTPLedger(opts HTTPOptions) *HTTPLedger {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.DefaultMetrics
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
		})
	if opts.Token != "" {
		client.SetAuthToken(opts.Token)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "trade-feed",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			opts.Logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state change")
		},
	})

	return &HTTPLedger{
		client:  client,
		limiter: limiter,
		breaker: breaker,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
}

// Trades fetches the trades dated inside r. Records that fail validation are
// skipped and logged; the feed's latest fact per id is kept.
func (l *HTTPLedger) Trades(ctx context.Context, r window.Range) ([]domain.TradeRecord, error) {
	if r.Empty {
		return nil, nil
	}

	params := map[string]string{}
	if !r.Unbounded {
		params["start"] = r.Start.Format(domain.DateLayout)
		params["end"] = r.End.Format(domain.DateLayout)
	}

	wire, err := l.fetch(ctx, params)
	if err != nil {
		return nil, err
	}

	out := make([]domain.TradeRecord, 0, len(wire))
	for i, w := range wire {
		rec, err := w.ToRecord(i)
		if err != nil {
			l.logger.WithError(err).Warn("skipping invalid feed trade")
			l.metrics.FeedErrors.WithLabelValues(tradesEndpoint, "invalid").Inc()
			continue
		}
		out = append(out, rec)
	}

	out = domain.Supersede(out)
	domain.SortByDate(out)
	return window.FilterRange(out, r), nil
}

func (l *HTTPLedger) fetch(ctx context.Context, params map[string]string) ([]WireTrade, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := l.breaker.Execute(func() (interface{}, error) {
		var wire []WireTrade
		resp, err := l.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetResult(&wire).
			Get(tradesEndpoint)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("status %d", resp.StatusCode())
		}
		return wire, nil
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		kind := "transport"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			kind = "breaker_open"
		} else if strings.HasPrefix(err.Error(), "status ") {
			kind = "status"
		}
		l.metrics.RecordFeedRequest(tradesEndpoint, elapsed, kind)
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}

	l.metrics.RecordFeedRequest(tradesEndpoint, elapsed, "")
	return res.([]WireTrade), nil
}

var _ Ledger = (*HTTPLedger)(nil)
