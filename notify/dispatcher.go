// Package notify relays new leads to the external automation webhook.
//
// Delivery is best effort: a single POST, no retry, and failures never reach the
// caller. They are logged and counted.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tekio-be/leads/metrics"
	"go.uber.org/zap"
)

// LeadType classifies what the prospect asked for.
type LeadType string

const (
	TypeAudit   LeadType = "audit"
	TypeExpert  LeadType = "expert"
	TypeContact LeadType = "contact"
)

const DefaultWebsite = "tekio.be"

// Payload is the JSON body the webhook receives.
type Payload struct {
	Type            LeadType `json:"type"`
	Source          string   `json:"source"`
	Name            *string  `json:"name,omitempty"`
	Email           *string  `json:"email,omitempty"`
	Phone           *string  `json:"phone,omitempty"`
	Company         *string  `json:"company,omitempty"`
	Message         *string  `json:"message,omitempty"`
	NbUsersEstimate *string  `json:"nb_users_estimate,omitempty"`
	Language        *string  `json:"language,omitempty"`
	Website         string   `json:"website"`
	Timestamp       string   `json:"timestamp"`
}

type Config struct {
	URL     string
	Website string
	Timeout time.Duration
}

type Dispatcher struct {
	url     string
	website string
	timeout time.Duration
	client  *resty.Client
	log     *zap.SugaredLogger
	now     func() time.Time

	wg sync.WaitGroup
}

func NewDispatcher(cfg Config, log *zap.SugaredLogger) *Dispatcher {
	if cfg.Website == "" {
		cfg.Website = DefaultWebsite
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Dispatcher{
		url:     cfg.URL,
		website: cfg.Website,
		timeout: cfg.Timeout,
		client:  client,
		log:     log,
		now:     time.Now,
	}
}

// Go dispatches payload on its own goroutine and returns immediately. The
// goroutine does not inherit any caller cancellation.
func (d *Dispatcher) Go(payload Payload) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		d.Dispatch(ctx, payload)
	}()
}

// Wait blocks until every dispatch started with Go has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch performs one POST to the webhook. It never fails from the caller's
// point of view.
func (d *Dispatcher) Dispatch(ctx context.Context, payload Payload) {
	if d.url == "" {
		d.log.Warnw("dispatch", "status", "webhook url not configured, lead not forwarded",
			"type", payload.Type, "source", payload.Source)
		metrics.RecordDispatch(metrics.DispatchSkipped)
		return
	}

	payload.Website = d.website
	payload.Timestamp = d.now().UTC().Format(time.RFC3339Nano)

	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(d.url)
	if err != nil {
		d.log.Errorw("dispatch", "status", "webhook unreachable",
			"type", payload.Type, "source", payload.Source, "error", err.Error())
		metrics.RecordDispatch(metrics.DispatchFailed)
		return
	}

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		d.log.Errorw("dispatch", "status", "webhook rejected lead",
			"type", payload.Type, "source", payload.Source, "http_status", resp.StatusCode())
		metrics.RecordDispatch(metrics.DispatchFailed)
		return
	}

	d.log.Infow("dispatch", "status", "lead forwarded", "type", payload.Type, "source", payload.Source)
	metrics.RecordDispatch(metrics.DispatchDelivered)
}
