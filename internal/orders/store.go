package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tradeEngine/internal/model"
)

// Store persists the full order list. Save replaces whatever was stored.
type Store interface {
	Load(ctx context.Context) ([]model.LimitOrder, error)
	Save(ctx context.Context, orders []model.LimitOrder) error
}

// FileStore stores orders in a local JSON file, replaced atomically.
type FileStore struct {
	Path string
}

type fileRecord struct {
	Orders    []model.LimitOrder `json:"orders"`
	UpdatedAt string             `json:"updated_at"`
}

func (s *FileStore) Load(ctx context.Context) ([]model.LimitOrder, error) {
	if s == nil || s.Path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read orders: %w", err)
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse orders: %w", err)
	}
	return rec.Orders, nil
}

func (s *FileStore) Save(ctx context.Context, orders []model.LimitOrder) error {
	if s == nil || s.Path == "" {
		return nil
	}
	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create orders dir: %w", err)
		}
	}

	rec := fileRecord{
		Orders:    orders,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal orders: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write orders tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename orders: %w", err)
	}
	return nil
}

// MemoryStore keeps orders in process memory only.
type MemoryStore struct {
	mu     sync.Mutex
	orders []model.LimitOrder
	saves  int
}

func NewMemoryStore(initial ...model.LimitOrder) *MemoryStore {
	return &MemoryStore{orders: append([]model.LimitOrder(nil), initial...)}
}

func (s *MemoryStore) Load(context.Context) ([]model.LimitOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.LimitOrder(nil), s.orders...), nil
}

func (s *MemoryStore) Save(_ context.Context, orders []model.LimitOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append([]model.LimitOrder(nil), orders...)
	s.saves++
	return nil
}

// Saves reports how many times Save was called.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
