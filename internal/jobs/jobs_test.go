package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/go-facturas/internal/config"
	"github.com/diewo77/go-facturas/internal/db"
	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/services"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))
	return gdb
}

// owner creates a user with a company and the given CAI deadlines.
func owner(t *testing.T, gdb *gorm.DB, cais *services.CAIService, email string, deadlines ...string) uint {
	t.Helper()
	ctx := context.Background()
	u := models.User{Email: email, Password: "hash"}
	require.NoError(t, gdb.Create(&u).Error)
	_, err := services.NewCompanyService(gdb).Save(ctx, u.ID, services.CompanyInput{Name: "Empresa " + email, RTN: "08011999123456"})
	require.NoError(t, err)
	for _, d := range deadlines {
		_, err := cais.Create(ctx, u.ID, services.CAIInput{
			Code:       "A1B2C3-D4E5F6-123456-ABCDEF-000000-7F",
			Prefix:     "000-001-01",
			RangeStart: 1,
			RangeEnd:   100,
			Deadline:   d,
		})
		require.NoError(t, err)
	}
	return u.ID
}

type recordingNotifier struct {
	notices []Notice
	err     error
}

func (r *recordingNotifier) Notify(_ context.Context, n Notice) error {
	r.notices = append(r.notices, n)
	return r.err
}

func TestCAIWatch_Run(t *testing.T) {
	gdb := setupTestDB(t)
	cais := services.NewCAIService(gdb)
	cais.Now = func() time.Time { return testNow }

	a := owner(t, gdb, cais, "a@example.hn", "2026-03-20", "2026-12-31")
	b := owner(t, gdb, cais, "b@example.hn", "2026-02-01", "2026-03-31")
	owner(t, gdb, cais, "c@example.hn", "2027-01-31")

	rec := &recordingNotifier{}
	w := NewCAIWatch(gdb, cais, rec, config.CAIWatchConfig{WithinDays: 30, Threshold: 0.9})
	n, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.Len(t, rec.notices, 2)
	assert.Equal(t, a, rec.notices[0].UserID)
	assert.Equal(t, "a@example.hn", rec.notices[0].Email)
	assert.Len(t, rec.notices[0].Statuses, 1)
	assert.Equal(t, b, rec.notices[1].UserID)
	assert.Len(t, rec.notices[1].Statuses, 2)
}

func TestCAIWatch_JoinsNotifierErrors(t *testing.T) {
	gdb := setupTestDB(t)
	cais := services.NewCAIService(gdb)
	cais.Now = func() time.Time { return testNow }
	owner(t, gdb, cais, "a@example.hn", "2026-03-20")
	owner(t, gdb, cais, "b@example.hn", "2026-03-21")

	boom := errors.New("smtp down")
	rec := &recordingNotifier{err: boom}
	n, err := NewCAIWatch(gdb, cais, rec, config.CAIWatchConfig{WithinDays: 30, Threshold: 0.9}).Run(context.Background())
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, rec.notices, 2, "one failure does not stop the others")
}

func TestCAIWatch_NothingToDo(t *testing.T) {
	gdb := setupTestDB(t)
	cais := services.NewCAIService(gdb)
	cais.Now = func() time.Time { return testNow }
	owner(t, gdb, cais, "a@example.hn", "2027-01-31")

	rec := &recordingNotifier{}
	n, err := NewCAIWatch(gdb, cais, rec, config.CAIWatchConfig{WithinDays: 30, Threshold: 0.9}).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, rec.notices)
}

type fakeSender struct{ sent []*gomail.Message }

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return nil
}

func TestMailNotifier(t *testing.T) {
	sender := &fakeSender{}
	mn := &MailNotifier{sender: sender, from: "avisos@facturas.hn"}
	st := services.Evaluate(models.CAI{
		Code: "A1B2C3-D4E5F6-123456-ABCDEF-000000-7F", Prefix: "000-001-01",
		RangeStart: 1, RangeEnd: 100, CurrentNumber: 95,
		Deadline: time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
	}, testNow, services.ExpiryOptions{WithinDays: 30, Threshold: 0.9})

	require.NoError(t, mn.Notify(context.Background(), Notice{UserID: 1, Email: "dueña@example.hn", Statuses: []services.CAIStatus{st}}))
	require.Len(t, sender.sent, 1)
	m := sender.sent[0]
	assert.Equal(t, []string{"dueña@example.hn"}, m.GetHeader("To"))
	assert.Equal(t, []string{"1 CAI por renovar"}, m.GetHeader("Subject"))

	body := noticeBody([]services.CAIStatus{st})
	assert.Contains(t, body, "fecha límite 2026-03-20")
	assert.Contains(t, body, "5 números restantes")
	assert.Contains(t, body, "fecha límite próxima, quedan pocos números")

	assert.Error(t, mn.Notify(context.Background(), Notice{UserID: 2}), "missing email")
}

func TestNewNotifier(t *testing.T) {
	_, isLog := NewNotifier(config.SMTPConfig{}).(LogNotifier)
	assert.True(t, isLog)
	multi, isMulti := NewNotifier(config.SMTPConfig{Host: "smtp.example.hn", Port: 587}).(Multi)
	require.True(t, isMulti)
	assert.Len(t, multi, 2)
}

func TestSchedule(t *testing.T) {
	_, err := Schedule(&CAIWatch{}, "every tuesday-ish", time.Second)
	assert.Error(t, err)

	c, err := Schedule(&CAIWatch{}, "0 7 * * *", time.Second)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
}
