package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/STARREPORTS/internal/rewrite"
	"github.com/STARREPORTS/internal/types"
)

// defaultProvider names calls that leave the provider empty
const defaultProvider = rewrite.ProviderLovable

// Instrumented wraps a Rewriter, recording every call and raising alerts
type Instrumented struct {
	next      rewrite.Rewriter
	collector Collector
	alerts    AlertEngine
	onAlert   func(*types.Alert)
}

// Instrument wraps next. onAlert may be nil.
func Instrument(next rewrite.Rewriter, collector Collector, alerts AlertEngine, onAlert func(*types.Alert)) *Instrumented {
	return &Instrumented{next: next, collector: collector, alerts: alerts, onAlert: onAlert}
}

// Rewrite forwards req and records the outcome. Input errors (4xx other
// than rate limits) are not provider failures and are not counted.
func (i *Instrumented) Rewrite(ctx context.Context, req rewrite.Request) (rewrite.Response, error) {
	start := time.Now()
	resp, err := i.next.Rewrite(ctx, req)
	if err != nil && !countsAsFailure(err) {
		return resp, err
	}

	provider := req.Provider
	if provider == "" {
		provider = defaultProvider
	}
	m := i.collector.Record(provider, time.Since(start), err, rewrite.StatusOf(err) == http.StatusTooManyRequests)

	if i.alerts != nil && i.onAlert != nil {
		for _, a := range i.alerts.CheckProvider(m) {
			i.onAlert(a)
		}
	}
	return resp, err
}

func countsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	status := rewrite.StatusOf(err)
	return status >= 500 || status == http.StatusTooManyRequests || status == http.StatusPaymentRequired
}
