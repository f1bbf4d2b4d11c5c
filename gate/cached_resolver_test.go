package gate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diewo77/go-facturas/gate"
)

type countingResolver struct {
	inner *gate.StaticResolver[uint]
	calls int
	err   error
}

func (c *countingResolver) Resolve(ctx context.Context, user uint) (gate.Profile, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.Resolve(ctx, user)
}

func newCounting() *countingResolver {
	return &countingResolver{inner: gate.NewStaticResolver[uint]()}
}

func TestCachedResolver_CachesProfile(t *testing.T) {
	inner := newCounting()
	inner.inner.Set(1, gate.NewStaticProfile(1, "cashier"))
	cached := gate.NewCachedResolver[uint](inner, 5*time.Minute)

	for i := 0; i < 3; i++ {
		p, err := cached.Resolve(context.Background(), 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Name() != "cashier" {
			t.Errorf("expected 'cashier', got '%s'", p.Name())
		}
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}
}

func TestCachedResolver_Invalidate(t *testing.T) {
	inner := newCounting()
	inner.inner.Set(1, gate.NewStaticProfile(1, "cashier"))
	inner.inner.Set(2, gate.NewStaticProfile(2, "viewer"))
	cached := gate.NewCachedResolver[uint](inner, 5*time.Minute)

	_, _ = cached.Resolve(context.Background(), 1)
	_, _ = cached.Resolve(context.Background(), 2)
	inner.inner.Set(1, gate.NewStaticProfile(1, "admin"))
	inner.inner.Set(2, gate.NewStaticProfile(2, "admin"))

	cached.Invalidate(1)
	p1, _ := cached.Resolve(context.Background(), 1)
	p2, _ := cached.Resolve(context.Background(), 2)
	if p1.Name() != "admin" {
		t.Errorf("expected 'admin' after invalidation, got '%s'", p1.Name())
	}
	if p2.Name() != "viewer" {
		t.Errorf("expected cached 'viewer', got '%s'", p2.Name())
	}

	cached.InvalidateAll()
	if cached.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", cached.Len())
	}
	p2, _ = cached.Resolve(context.Background(), 2)
	if p2.Name() != "admin" {
		t.Errorf("expected 'admin' after InvalidateAll, got '%s'", p2.Name())
	}
}

func TestCachedResolver_TTLExpiry(t *testing.T) {
	inner := newCounting()
	inner.inner.Set(1, gate.NewStaticProfile(1, "cashier"))
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cached := gate.NewCachedResolver[uint](inner, time.Minute).WithClock(func() time.Time { return now })

	_, _ = cached.Resolve(context.Background(), 1)
	inner.inner.Set(1, gate.NewStaticProfile(1, "admin"))

	now = now.Add(30 * time.Second)
	if p, _ := cached.Resolve(context.Background(), 1); p.Name() != "cashier" {
		t.Errorf("expected cached 'cashier' before expiry, got '%s'", p.Name())
	}

	now = now.Add(time.Minute)
	if p, _ := cached.Resolve(context.Background(), 1); p.Name() != "admin" {
		t.Errorf("expected 'admin' after TTL expiry, got '%s'", p.Name())
	}
}

func TestCachedResolver_ErrorsNotCached(t *testing.T) {
	inner := newCounting()
	inner.err = errors.New("db down")
	cached := gate.NewCachedResolver[uint](inner, time.Minute)

	if _, err := cached.Resolve(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}
	inner.err = nil
	inner.inner.Set(1, gate.NewStaticProfile(1, "viewer"))
	p, err := cached.Resolve(context.Background(), 1)
	if err != nil || p == nil {
		t.Fatalf("expected profile after recovery, got %v %v", p, err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 inner calls, got %d", inner.calls)
	}
}
