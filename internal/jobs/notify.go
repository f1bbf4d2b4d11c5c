package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/diewo77/go-facturas/internal/config"
	"github.com/diewo77/go-facturas/internal/services"
)

// LogNotifier writes one warning per flagged CAI.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notice) error {
	for _, st := range n.Statuses {
		zap.L().Warn("cai needs renewal",
			zap.Uint("user_id", n.UserID),
			zap.Uint("cai_id", st.CAI.ID),
			zap.String("prefix", st.CAI.Prefix),
			zap.Int("days_left", st.DaysLeft),
			zap.Int64("remaining", st.Remaining),
			zap.Strings("reasons", st.Reasons))
	}
	return nil
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailNotifier emails the owner a summary of the flagged CAIs.
type MailNotifier struct {
	sender mailSender
	from   string
}

func NewMailNotifier(cfg config.SMTPConfig) *MailNotifier {
	return &MailNotifier{
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

func (m *MailNotifier) Notify(_ context.Context, n Notice) error {
	if n.Email == "" {
		return fmt.Errorf("user %d has no email", n.UserID)
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetAddressHeader("To", n.Email, "")
	msg.SetHeader("Subject", fmt.Sprintf("%d CAI por renovar", len(n.Statuses)))
	msg.SetBody("text/plain", noticeBody(n.Statuses))
	return m.sender.DialAndSend(msg)
}

var reasonText = map[string]string{
	services.ReasonExpired:      "vencido",
	services.ReasonDeadlineSoon: "fecha límite próxima",
	services.ReasonExhausted:    "rango agotado",
	services.ReasonRangeLow:     "quedan pocos números",
}

func noticeBody(statuses []services.CAIStatus) string {
	var b strings.Builder
	b.WriteString("Los siguientes CAI necesitan renovación:\n\n")
	for _, st := range statuses {
		reasons := make([]string, len(st.Reasons))
		for i, r := range st.Reasons {
			reasons[i] = reasonText[r]
		}
		fmt.Fprintf(&b, "- %s (%s): fecha límite %s, %d números restantes. %s.\n",
			st.CAI.Code, st.CAI.Prefix, st.CAI.Deadline.Format(services.DateLayout),
			st.Remaining, strings.Join(reasons, ", "))
	}
	b.WriteString("\nSolicite un nuevo CAI ante el SAR antes de seguir facturando.\n")
	return b.String()
}

// Multi fans a notice out to several notifiers, collecting every error.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notice) error {
	var errs []error
	for _, x := range m {
		if err := x.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewNotifier logs always and also mails when SMTP is configured.
func NewNotifier(cfg config.SMTPConfig) Notifier {
	if cfg.Host == "" {
		return LogNotifier{}
	}
	return Multi{LogNotifier{}, NewMailNotifier(cfg)}
}
