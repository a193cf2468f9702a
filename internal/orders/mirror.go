package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"tradeEngine/internal/model"
)

const (
	defaultMirrorTimeout = 10 * time.Second
	defaultMirrorRetries = 3
	defaultMirrorBackoff = 500 * time.Millisecond
)

// Mirror copies order lifecycle events to a remote backend. Implementations
// must not block the caller.
type Mirror interface {
	Created(order model.LimitOrder)
	Cancelled(id string)
}

// HTTPMirror posts created orders and deletes cancelled ones on the
// backend's limit-orders endpoint.
type HTTPMirror struct {
	endpoint string
	client   *http.Client
	retries  int
	backoff  time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	wg       sync.WaitGroup
}

type MirrorOption func(*HTTPMirror)

func WithMirrorRetry(retries int, backoff time.Duration) MirrorOption {
	return func(m *HTTPMirror) {
		m.retries = retries
		m.backoff = backoff
	}
}

func WithMirrorClient(client *http.Client) MirrorOption {
	return func(m *HTTPMirror) {
		m.client = client
	}
}

func NewHTTPMirror(endpoint string, timeout time.Duration, logger *zap.Logger, opts ...MirrorOption) *HTTPMirror {
	if timeout <= 0 {
		timeout = defaultMirrorTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &HTTPMirror{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		retries:  defaultMirrorRetries,
		backoff:  defaultMirrorBackoff,
		timeout:  timeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// mirrorPayload matches what the backend validates: id, user, tokenIn, tokenOut.
type mirrorPayload struct {
	ID          string      `json:"id"`
	User        string      `json:"user"`
	TokenIn     model.Token `json:"tokenIn"`
	TokenOut    model.Token `json:"tokenOut"`
	AmountIn    string      `json:"amountIn"`
	TargetPrice float64     `json:"targetPrice"`
	ExpiresAt   int64       `json:"expiresAt"`
	Status      string      `json:"status"`
	CreatedAt   int64       `json:"createdAt"`
	Pair        string      `json:"pair"`
}

func (m *HTTPMirror) Created(order model.LimitOrder) {
	payload := mirrorPayload{
		ID:          order.ID,
		User:        order.Owner,
		TokenIn:     order.TokenIn,
		TokenOut:    order.TokenOut,
		AmountIn:    order.AmountIn,
		TargetPrice: order.TargetPrice,
		ExpiresAt:   order.ExpiresAt.UnixMilli(),
		Status:      string(order.Status),
		CreatedAt:   order.CreatedAt.UnixMilli(),
		Pair:        order.Pair,
	}
	m.dispatch("create", order.ID, func(ctx context.Context) error {
		body, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		return m.do(ctx, http.MethodPost, m.endpoint, body)
	})
}

func (m *HTTPMirror) Cancelled(id string) {
	m.dispatch("cancel", id, func(ctx context.Context) error {
		u, err := url.Parse(m.endpoint)
		if err != nil {
			return err
		}
		q := u.Query()
		q.Set("id", id)
		u.RawQuery = q.Encode()
		return m.do(ctx, http.MethodDelete, u.String(), nil)
	})
}

// Wait blocks until in-flight requests finish.
func (m *HTTPMirror) Wait() {
	m.wg.Wait()
}

func (m *HTTPMirror) dispatch(op, id string, fn func(context.Context) error) {
	if m.endpoint == "" {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		budget := m.timeout * time.Duration(m.retries+1)
		ctx, cancel := context.WithTimeout(context.Background(), budget)
		defer cancel()

		if err := withRetry(ctx, m.retries, m.backoff, fn); err != nil {
			m.logger.Warn("order mirror failed", zap.String("op", op), zap.String("order_id", id), zap.Error(err))
			return
		}
		m.logger.Debug("order mirrored", zap.String("op", op), zap.String("order_id", id))
	}()
}

func (m *HTTPMirror) do(ctx context.Context, method, target string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", method, target, resp.StatusCode)
	}
	return nil
}
