package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	pr "github.com/unkn0wn-root/gencache/provider"
)

var ErrInvalidConfig = errors.New("ristretto provider: NumCounters, MaxCost and BufferItems must be > 0")

// Provider is a cost-aware store: the result store passes the encoded size
// (or a custom cost) on every Set, so MaxCost can bound memory in bytes.
type Provider struct {
	c *rc.Cache
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, ErrInvalidConfig
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set is asynchronous in ristretto: ok=true means admitted to the buffer,
// the value becomes visible once Wait (or the buffer) flushes.
func (p *Provider) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return p.c.Set(key, value, cost), nil
	}
	return p.c.SetWithTTL(key, value, cost, ttl), nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Del(key)
	return nil
}

// Wait blocks until buffered writes are applied.
func (p *Provider) Wait() { p.c.Wait() }

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes ristretto's counters; nil unless Config.Metrics was set.
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
