package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tradeEngine/internal/dex"
	"tradeEngine/internal/metrics"
	"tradeEngine/internal/model"
	"tradeEngine/internal/swap"
)

const (
	DefaultInterval        = 30 * time.Second
	DefaultPriceTimeout    = 10 * time.Second
	DefaultExecTimeout     = 90 * time.Second
	DefaultSlippagePercent = 0.5
	DefaultRetention       = 30 * 24 * time.Hour

	persistTimeout = 10 * time.Second
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderNotPending = errors.New("order is not pending")
)

// PriceSource reports the spot price of tokenIn in tokenOut.
type PriceSource interface {
	MarketPrice(ctx context.Context, tokenIn, tokenOut model.Token) (float64, error)
}

// Executor is the part of the swap facade the monitor drives.
type Executor interface {
	QuoteAtPrice(tokenIn, tokenOut model.Token, amountIn string, price, slippagePercent float64) (*model.Quote, error)
	ExecuteSwap(ctx context.Context, p swap.Params, q *model.Quote, signerAddress string) (string, error)
}

type Config struct {
	Interval        time.Duration
	PriceTimeout    time.Duration
	ExecTimeout     time.Duration
	SlippagePercent float64
	Retention       time.Duration
	// DeadlineWindow is handed to the executor; zero keeps its default.
	DeadlineWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.PriceTimeout <= 0 {
		c.PriceTimeout = DefaultPriceTimeout
	}
	if c.ExecTimeout <= 0 {
		c.ExecTimeout = DefaultExecTimeout
	}
	if c.SlippagePercent <= 0 {
		c.SlippagePercent = DefaultSlippagePercent
	}
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	return c
}

// Deps wires the monitor's collaborators. Mirror, Notifier, Metrics and
// Logger may be nil.
type Deps struct {
	Prices   PriceSource
	Executor Executor
	Store    Store
	Mirror   Mirror
	Notifier Notifier
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	Now      func() time.Time
}

type CreateParams struct {
	Owner          string
	TokenIn        model.Token
	TokenOut       model.Token
	AmountIn       string
	PriceSelector  PriceSelector
	CustomPrice    float64
	ExpirySelector ExpirySelector
}

// Monitor owns the limit order book. Orders are evaluated by a background
// loop that only runs while something is pending.
//
// The store is shared with other processes (the CLI creates and cancels
// orders while a daemon monitor polls), so the book is reconciled with it
// before every write and again right before a swap is sent.
type Monitor struct {
	cfg      Config
	prices   PriceSource
	executor Executor
	store    Store
	mirror   Mirror
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	orders  []model.LimitOrder
	loopCtx context.Context
	running bool

	// saveMu orders snapshot-and-save pairs so an older snapshot never
	// lands after a newer one.
	saveMu sync.Mutex
	tickMu sync.Mutex
	wg     sync.WaitGroup
}

func NewMonitor(cfg Config, deps Deps) *Monitor {
	if deps.Store == nil {
		deps.Store = NewMemoryStore()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Monitor{
		cfg:      cfg.withDefaults(),
		prices:   deps.Prices,
		executor: deps.Executor,
		store:    deps.Store,
		mirror:   deps.Mirror,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		now:      deps.Now,
	}
}

// Load replaces the in-memory book with the store's contents.
func (m *Monitor) Load(ctx context.Context) error {
	orders, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load orders: %w", err)
	}
	m.mu.Lock()
	m.orders = orders
	pending := countPending(orders)
	m.mu.Unlock()

	m.metrics.SetPendingOrders(pending)
	m.logger.Info("orders loaded", zap.Int("total", len(orders)), zap.Int("pending", pending))
	return nil
}

// Start loads the store and enables background polling for ctx's lifetime.
func (m *Monitor) Start(ctx context.Context) error {
	if err := m.Load(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	m.loopCtx = ctx
	m.mu.Unlock()
	m.ensureLoop()
	return nil
}

// Wait blocks until the polling goroutine has exited.
func (m *Monitor) Wait() {
	m.wg.Wait()
}

// Running reports whether the polling goroutine is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) CreateLimitOrder(ctx context.Context, p CreateParams) (model.LimitOrder, error) {
	if p.Owner == "" {
		return model.LimitOrder{}, swap.ErrNotConnected
	}
	if p.TokenIn.Equal(p.TokenOut) {
		return model.LimitOrder{}, swap.ErrSameToken
	}
	raw, err := dex.ParseAmount(p.AmountIn, p.TokenIn.Decimals)
	if err != nil {
		return model.LimitOrder{}, err
	}
	if raw.Sign() <= 0 {
		return model.LimitOrder{}, swap.ErrInvalidAmount
	}

	if p.PriceSelector == "" {
		p.PriceSelector = PriceMarket
	}
	if p.ExpirySelector == "" {
		p.ExpirySelector = Expiry1Week
	}
	validity, ok := p.ExpirySelector.Duration()
	if !ok {
		return model.LimitOrder{}, fmt.Errorf("unknown expiry selector %q", p.ExpirySelector)
	}
	target, err := m.targetPrice(ctx, p)
	if err != nil {
		return model.LimitOrder{}, err
	}

	now := m.now()
	order := model.LimitOrder{
		ID:          newOrderID(now),
		Owner:       p.Owner,
		TokenIn:     p.TokenIn,
		TokenOut:    p.TokenOut,
		AmountIn:    p.AmountIn,
		TargetPrice: target,
		ExpiresAt:   now.Add(validity),
		Status:      model.OrderPending,
		CreatedAt:   now,
		Pair:        p.TokenIn.Symbol + "/" + p.TokenOut.Symbol,
	}

	m.reload(ctx)
	m.mu.Lock()
	m.orders = append(m.orders, order)
	m.mu.Unlock()

	snapshot, err := m.save(ctx)
	if err != nil {
		m.mu.Lock()
		m.removeLocked(order.ID)
		m.mu.Unlock()
		return model.LimitOrder{}, fmt.Errorf("persist order: %w", err)
	}

	if m.mirror != nil {
		m.mirror.Created(order)
	}
	m.metrics.RecordOrderTransition(string(model.OrderPending))
	m.metrics.SetPendingOrders(countPending(snapshot))
	m.logger.Info("limit order created",
		zap.String("order_id", order.ID),
		zap.String("pair", order.Pair),
		zap.String("amount_in", order.AmountIn),
		zap.Float64("target_price", order.TargetPrice),
		zap.Time("expires_at", order.ExpiresAt),
	)

	m.ensureLoop()
	return order, nil
}

func (m *Monitor) targetPrice(ctx context.Context, p CreateParams) (float64, error) {
	if p.PriceSelector == PriceCustom {
		if p.CustomPrice <= 0 {
			return 0, errors.New("custom price must be positive")
		}
		return p.CustomPrice, nil
	}
	multiplier, ok := p.PriceSelector.Multiplier()
	if !ok {
		return 0, fmt.Errorf("unknown price selector %q", p.PriceSelector)
	}
	if m.prices == nil {
		return 0, errors.New("no price source configured")
	}

	priceCtx, cancel := context.WithTimeout(ctx, m.cfg.PriceTimeout)
	defer cancel()
	price, err := m.prices.MarketPrice(priceCtx, p.TokenIn, p.TokenOut)
	if err != nil {
		return 0, fmt.Errorf("fetch market price: %w", err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("fetch market price: non-positive price %v", price)
	}
	return price * multiplier, nil
}

// Cancel moves a pending order to cancelled.
func (m *Monitor) Cancel(ctx context.Context, id string) error {
	m.reload(ctx)
	m.mu.Lock()
	idx := m.indexLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		return ErrOrderNotFound
	}
	if m.orders[idx].Status != model.OrderPending {
		m.mu.Unlock()
		return ErrOrderNotPending
	}
	m.orders[idx].Status = model.OrderCancelled
	m.mu.Unlock()

	snapshot, err := m.save(ctx)
	if err != nil {
		m.logger.Error("persist cancelled order", zap.String("order_id", id), zap.Error(err))
	}
	if m.mirror != nil {
		m.mirror.Cancelled(id)
	}
	m.metrics.RecordOrderTransition(string(model.OrderCancelled))
	m.metrics.SetPendingOrders(countPending(snapshot))
	m.logger.Info("limit order cancelled", zap.String("order_id", id))
	return nil
}

// CancelOrder reports whether the order was pending and is now cancelled.
func (m *Monitor) CancelOrder(ctx context.Context, id string) bool {
	return m.Cancel(ctx, id) == nil
}

func (m *Monitor) Orders() []model.LimitOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Monitor) PendingOrders() []model.LimitOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.LimitOrder
	for _, o := range m.orders {
		if o.Status == model.OrderPending {
			out = append(out, o)
		}
	}
	return out
}

func (m *Monitor) Order(id string) (model.LimitOrder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexLocked(id)
	if idx < 0 {
		return model.LimitOrder{}, false
	}
	return m.orders[idx], true
}

func (m *Monitor) Stats() model.OrderStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := model.OrderStats{Total: len(m.orders)}
	for _, o := range m.orders {
		switch o.Status {
		case model.OrderPending:
			stats.Pending++
		case model.OrderExecuted:
			stats.Executed++
		case model.OrderCancelled:
			stats.Cancelled++
		case model.OrderExpired:
			stats.Expired++
		case model.OrderFailed:
			stats.Failed++
		}
	}
	return stats
}

// CleanupExpired drops finished orders created before the retention window
// and returns how many were removed.
func (m *Monitor) CleanupExpired(ctx context.Context) (int, error) {
	cutoff := m.now().Add(-m.cfg.Retention)

	m.reload(ctx)
	m.mu.Lock()
	kept := m.orders[:0:0]
	for _, o := range m.orders {
		if o.Status == model.OrderPending || o.CreatedAt.After(cutoff) {
			kept = append(kept, o)
		}
	}
	removed := len(m.orders) - len(kept)
	m.orders = kept
	m.mu.Unlock()

	if removed == 0 {
		return 0, nil
	}
	if _, err := m.save(ctx); err != nil {
		return removed, fmt.Errorf("persist cleanup: %w", err)
	}
	m.logger.Info("old orders removed", zap.Int("removed", removed))
	return removed, nil
}

// Tick picks up changes other processes made to the store, evaluates every
// pending order once, persists the book and returns the number of orders
// still pending.
func (m *Monitor) Tick(ctx context.Context) int {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	m.reload(ctx)
	for _, order := range m.PendingOrders() {
		if ctx.Err() != nil {
			break
		}
		m.evaluate(ctx, order)
	}

	snapshot, err := m.persist(ctx)
	if err != nil {
		m.logger.Error("persist orders", zap.Error(err))
	}
	pending := countPending(snapshot)
	m.metrics.SetPendingOrders(pending)
	return pending
}

func (m *Monitor) evaluate(ctx context.Context, order model.LimitOrder) {
	now := m.now()
	if now.After(order.ExpiresAt) {
		m.finish(ctx, order.ID, func(o *model.LimitOrder) {
			o.Status = model.OrderExpired
		})
		return
	}
	if m.prices == nil {
		return
	}

	priceCtx, cancel := context.WithTimeout(ctx, m.cfg.PriceTimeout)
	price, err := m.prices.MarketPrice(priceCtx, order.TokenIn, order.TokenOut)
	cancel()
	if err != nil {
		m.logger.Warn("market price unavailable", zap.String("order_id", order.ID), zap.Error(err))
		return
	}
	if price < order.TargetPrice {
		m.logger.Debug("order not triggered",
			zap.String("order_id", order.ID),
			zap.Float64("price", price),
			zap.Float64("target_price", order.TargetPrice),
		)
		return
	}

	// A cancel from another process may have landed since the tick began.
	// Without a fresh read the order waits for the next tick.
	if err := m.reload(ctx); err != nil {
		return
	}
	if cur, ok := m.Order(order.ID); !ok || cur.Status != model.OrderPending {
		m.logger.Info("order changed before execution", zap.String("order_id", order.ID))
		return
	}

	m.logger.Info("order triggered",
		zap.String("order_id", order.ID),
		zap.Float64("price", price),
		zap.Float64("target_price", order.TargetPrice),
	)
	txID, err := m.execute(ctx, order)
	if err != nil {
		m.finish(ctx, order.ID, func(o *model.LimitOrder) {
			o.Status = model.OrderFailed
			o.Error = err.Error()
		})
		return
	}
	executedAt := m.now()
	m.finish(ctx, order.ID, func(o *model.LimitOrder) {
		o.Status = model.OrderExecuted
		o.ExecutedAt = &executedAt
		o.TransactionID = txID
	})
}

func (m *Monitor) execute(ctx context.Context, order model.LimitOrder) (string, error) {
	if m.executor == nil {
		return "", errors.New("no executor configured")
	}
	q, err := m.executor.QuoteAtPrice(order.TokenIn, order.TokenOut, order.AmountIn, order.TargetPrice, m.cfg.SlippagePercent)
	if err != nil {
		return "", fmt.Errorf("quote at target: %w", err)
	}

	execCtx, cancel := context.WithTimeout(ctx, m.cfg.ExecTimeout)
	defer cancel()
	params := swap.Params{
		TokenIn:         order.TokenIn,
		TokenOut:        order.TokenOut,
		AmountIn:        order.AmountIn,
		SlippagePercent: m.cfg.SlippagePercent,
	}
	if m.cfg.DeadlineWindow > 0 {
		params.Deadline = m.now().Add(m.cfg.DeadlineWindow)
	}
	return m.executor.ExecuteSwap(execCtx, params, q, order.Owner)
}

// finish applies a terminal transition if the order is still pending and
// persists it straight away. An order cancelled while its swap was in flight
// keeps its cancelled status but records the transaction.
func (m *Monitor) finish(ctx context.Context, id string, apply func(*model.LimitOrder)) {
	m.mu.Lock()
	idx := m.indexLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		return
	}
	if m.orders[idx].Status != model.OrderPending {
		next := m.orders[idx]
		apply(&next)
		if next.TransactionID != "" {
			m.orders[idx].TransactionID = next.TransactionID
		}
		status := m.orders[idx].Status
		m.mu.Unlock()
		m.logger.Warn("order left pending during evaluation",
			zap.String("order_id", id),
			zap.String("status", string(status)),
			zap.String("tx_id", next.TransactionID),
		)
		if next.TransactionID != "" {
			if _, err := m.persist(ctx); err != nil {
				m.logger.Error("persist order", zap.String("order_id", id), zap.Error(err))
			}
		}
		return
	}
	apply(&m.orders[idx])
	order := m.orders[idx]
	m.mu.Unlock()

	if _, err := m.persist(ctx); err != nil {
		m.logger.Error("persist order", zap.String("order_id", id), zap.String("status", string(order.Status)), zap.Error(err))
	}
	m.metrics.RecordOrderTransition(string(order.Status))
	if m.notifier != nil {
		m.notifier.Notify(order)
	}
}

func (m *Monitor) ensureLoop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running || m.loopCtx == nil || m.loopCtx.Err() != nil {
		return
	}
	if countPending(m.orders) == 0 {
		return
	}
	m.running = true
	m.wg.Add(1)
	go m.loop(m.loopCtx)
}

func (m *Monitor) loop(ctx context.Context) {
	defer m.wg.Done()
	m.logger.Info("order monitor started", zap.Duration("interval", m.cfg.Interval))

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		m.Tick(ctx)
		if m.stopIfIdle(ctx) {
			m.logger.Info("order monitor stopped")
			return
		}
		select {
		case <-ctx.Done():
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
			m.logger.Info("order monitor stopped", zap.Error(ctx.Err()))
			return
		case <-ticker.C:
		}
	}
}

// stopIfIdle clears the running flag when nothing is pending. It shares the
// lock with order creation so a new order either sees the loop alive or
// starts a fresh one.
func (m *Monitor) stopIfIdle(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx.Err() == nil && countPending(m.orders) > 0 {
		return false
	}
	m.running = false
	return true
}

// reload merges the store into the book. A failed read is logged and leaves
// the book as is.
func (m *Monitor) reload(ctx context.Context) error {
	stored, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("reload orders", zap.Error(err))
		return err
	}
	m.mu.Lock()
	m.mergeLocked(stored)
	m.mu.Unlock()
	return nil
}

// mergeLocked folds the persisted book into memory. Orders only the store
// knows were created elsewhere and are adopted. A terminal status in the
// store beats a pending one in memory, so a cancel from another process
// wins. Finished orders the store no longer has were cleaned up elsewhere
// and are dropped.
func (m *Monitor) mergeLocked(stored []model.LimitOrder) {
	byID := make(map[string]model.LimitOrder, len(stored))
	for _, o := range stored {
		byID[o.ID] = o
	}
	merged := make([]model.LimitOrder, 0, len(m.orders)+len(stored))
	known := make(map[string]bool, len(m.orders))
	for _, o := range m.orders {
		known[o.ID] = true
		s, ok := byID[o.ID]
		switch {
		case !ok && o.Status != model.OrderPending:
			continue
		case ok && o.Status == model.OrderPending && s.Status != model.OrderPending:
			o = s
		case ok && o.TransactionID == "" && s.TransactionID != "":
			o.TransactionID = s.TransactionID
		}
		merged = append(merged, o)
	}
	for _, o := range stored {
		if !known[o.ID] {
			merged = append(merged, o)
		}
	}
	m.orders = merged
}

// save writes the current book and returns what was written.
func (m *Monitor) save(ctx context.Context) ([]model.LimitOrder, error) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	m.mu.Lock()
	snapshot := m.snapshotLocked()
	m.mu.Unlock()
	return snapshot, m.store.Save(ctx, snapshot)
}

// persist reconciles with the store and saves. It runs detached from ctx's
// cancellation: a swap that was broadcast must have its status written even
// when shutdown is under way.
func (m *Monitor) persist(ctx context.Context) ([]model.LimitOrder, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	m.reload(ctx)
	return m.save(ctx)
}

func (m *Monitor) snapshotLocked() []model.LimitOrder {
	return append([]model.LimitOrder(nil), m.orders...)
}

func (m *Monitor) indexLocked(id string) int {
	for i := range m.orders {
		if m.orders[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Monitor) removeLocked(id string) {
	if idx := m.indexLocked(id); idx >= 0 {
		m.orders = append(m.orders[:idx], m.orders[idx+1:]...)
	}
}

func countPending(orders []model.LimitOrder) int {
	n := 0
	for _, o := range orders {
		if o.Status == model.OrderPending {
			n++
		}
	}
	return n
}

func newOrderID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("order_%d_%s", now.UnixMilli(), suffix)
}
