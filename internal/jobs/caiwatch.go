// Package jobs runs the scheduled background work: today only the CAI
// expiry watch.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/go-facturas/internal/config"
	"github.com/diewo77/go-facturas/internal/metrics"
	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/services"
)

// Notice lists one user's CAIs that need renewal.
type Notice struct {
	UserID   uint
	Email    string
	Statuses []services.CAIStatus
}

type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// CAIWatch finds CAIs close to their deadline or range end and tells their
// owners.
type CAIWatch struct {
	db       *gorm.DB
	cais     *services.CAIService
	notifier Notifier
	opts     services.ExpiryOptions
}

func NewCAIWatch(db *gorm.DB, cais *services.CAIService, notifier Notifier, cfg config.CAIWatchConfig) *CAIWatch {
	return &CAIWatch{
		db:       db,
		cais:     cais,
		notifier: notifier,
		opts:     services.ExpiryOptions{WithinDays: cfg.WithinDays, Threshold: cfg.Threshold},
	}
}

// Run checks every CAI once and sends one notice per owner. It returns the
// number of CAIs flagged; notifier failures are joined into the error.
func (w *CAIWatch) Run(ctx context.Context) (int, error) {
	statuses, err := w.cais.ExpiringAll(ctx, w.opts)
	if err != nil {
		return 0, fmt.Errorf("list expiring cais: %w", err)
	}
	metrics.SetCAIExpiring(len(statuses))
	if len(statuses) == 0 {
		return 0, nil
	}

	byUser := make(map[uint][]services.CAIStatus)
	for _, st := range statuses {
		byUser[st.CAI.UserID] = append(byUser[st.CAI.UserID], st)
	}
	ids := make([]uint, 0, len(byUser))
	for id := range byUser {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var users []models.User
	if err := w.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return len(statuses), fmt.Errorf("load cai owners: %w", err)
	}
	emails := make(map[uint]string, len(users))
	for _, u := range users {
		emails[u.ID] = u.Email
	}

	var errs []error
	for _, id := range ids {
		n := Notice{UserID: id, Email: emails[id], Statuses: byUser[id]}
		if err := w.notifier.Notify(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("notify user %d: %w", id, err))
		}
	}
	return len(statuses), errors.Join(errs...)
}

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Schedule registers w on a new cron scheduler. The caller starts and stops it.
func Schedule(w *CAIWatch, expr string, timeout time.Duration) (*cron.Cron, error) {
	c := cron.New(cron.WithParser(cronParser))
	_, err := c.AddFunc(expr, func() {
		defer func() {
			if rec := recover(); rec != nil {
				zap.L().Error("cai watch panicked", zap.Any("panic", rec))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		n, err := w.Run(ctx)
		if err != nil {
			zap.L().Error("cai watch failed", zap.Int("flagged", n), zap.Error(err))
			return
		}
		zap.L().Info("cai watch done", zap.Int("flagged", n))
	})
	if err != nil {
		return nil, fmt.Errorf("schedule cai watch %q: %w", expr, err)
	}
	return c, nil
}
