package workspace

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/diewo77/go-facturas/auth"
	"github.com/diewo77/go-facturas/internal/cache"
)

// Service serves snapshots from a cache, loading them on a miss. Partial
// snapshots are returned but never cached.
type Service struct {
	loader *Loader
	store  cache.Store
	ttl    time.Duration
}

func NewService(loader *Loader, store cache.Store, ttl time.Duration) *Service {
	return &Service{loader: loader, store: store, ttl: ttl}
}

func key(userID uint) string {
	return "workspace:" + strconv.FormatUint(uint64(userID), 10)
}

// Get returns the cached snapshot of userID or loads a fresh one.
func (s *Service) Get(ctx context.Context, userID uint) (*Snapshot, error) {
	var snap Snapshot
	hit, err := s.store.Get(ctx, key(userID), &snap)
	if err != nil {
		// a broken cache must not hide the data
		zap.L().Warn("workspace cache read failed", zap.Uint("user_id", userID), zap.Error(err))
	}
	if hit {
		return &snap, nil
	}
	return s.load(ctx, userID)
}

// Refresh drops the cached snapshot and loads a new one.
func (s *Service) Refresh(ctx context.Context, userID uint) (*Snapshot, error) {
	s.Invalidate(ctx, userID)
	return s.load(ctx, userID)
}

func (s *Service) load(ctx context.Context, userID uint) (*Snapshot, error) {
	fresh, err := s.loader.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if fresh.Complete() {
		if err := s.store.Set(ctx, key(userID), fresh, s.ttl); err != nil {
			zap.L().Warn("workspace cache write failed", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
	return fresh, nil
}

// Invalidate drops the cached snapshot of userID.
func (s *Service) Invalidate(ctx context.Context, userID uint) {
	if err := s.store.Delete(ctx, key(userID)); err != nil {
		zap.L().Warn("workspace cache invalidate failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}

// InvalidateOnWrite drops the caller's snapshot after every successful
// unsafe request (anything but GET, HEAD and OPTIONS).
func (s *Service) InvalidateOnWrite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		if uid, ok := auth.UserIDFromContext(r.Context()); ok && sw.status < 400 {
			s.Invalidate(context.WithoutCancel(r.Context()), uid)
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
