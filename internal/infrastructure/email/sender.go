// Package email delivers issued vouchers over SMTP, one inline QR image per
// voucher.
package email

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-gomail/gomail"
	"go.uber.org/zap"

	"github.com/acampov/mealpass/internal/application/port"
	"github.com/acampov/mealpass/internal/domain/entity"
)

// Config holds the outbound SMTP settings. Injected at construction; nothing
// here reads ambient global state.
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	SenderName string
	EventName  string
}

// Sender implements port.NotificationSink over SMTP.
type Sender struct {
	dialer   *gomail.Dialer
	renderer port.QRRenderer
	cfg      Config
	logger   *zap.Logger
}

// NewSender creates a new email sender
func NewSender(cfg Config, renderer port.QRRenderer, logger *zap.Logger) *Sender {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &Sender{
		dialer:   dialer,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger,
	}
}

// SendVouchers renders one QR image per voucher and emails them to the
// attendee. Problems are reported through the returned status, never as an
// error: a broken relay must not undo an issuance, and an attendee without an
// email address is skipped rather than failed.
func (s *Sender) SendVouchers(ctx context.Context, identity entity.AttendeeIdentity, vouchers []*entity.Voucher) port.NotificationStatus {
	if strings.TrimSpace(identity.Email) == "" {
		s.logger.Info("No email on record, skipping notification",
			zap.String("external_id", identity.ExternalID))
		return port.NotificationSkipped
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.From, s.cfg.SenderName))
	m.SetHeader("To", identity.Email)
	m.SetHeader("Subject", fmt.Sprintf("Your meal vouchers - %s", identity.Name))
	m.SetBody("text/plain", s.plainBody(identity))

	html := s.htmlHeader(identity)
	for _, voucher := range vouchers {
		png, err := s.renderer.Render(voucher.Token)
		if err != nil {
			s.logger.Error("Failed to render voucher QR",
				zap.String("external_id", identity.ExternalID),
				zap.String("meal_type", string(voucher.MealType)),
				zap.Error(err))
			return port.NotificationFailed
		}

		cid := fmt.Sprintf("qr_%s.png", strings.ToLower(string(voucher.MealType)))
		m.Embed(cid, gomail.SetCopyFunc(func(w io.Writer) error {
			_, werr := w.Write(png)
			return werr
		}))
		html += s.htmlVoucherSection(voucher, cid)
	}
	html += htmlFooter
	m.AddAlternative("text/html", html)

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error("Failed to send voucher email",
			zap.String("email", identity.Email),
			zap.Error(err))
		return port.NotificationFailed
	}

	s.logger.Info("Voucher email sent",
		zap.String("email", identity.Email),
		zap.Int("vouchers", len(vouchers)))
	return port.NotificationSent
}

func (s *Sender) plainBody(identity entity.AttendeeIdentity) string {
	return fmt.Sprintf("Hello %s, attached are your single-use meal voucher QR codes for %s.",
		identity.Name, s.cfg.EventName)
}

func (s *Sender) htmlHeader(identity entity.AttendeeIdentity) string {
	return fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif; color: #333;">
<h1>%s</h1>
<h2>Hello %s!</h2>
<p>Here are your meal voucher QR codes. Each code can be used <strong>once</strong>.
Present the matching code at the serving station and keep this email to access
your codes during the event.</p>
`, s.cfg.EventName, identity.Name)
}

func (s *Sender) htmlVoucherSection(voucher *entity.Voucher, cid string) string {
	return fmt.Sprintf(`<div style="text-align: center; margin: 20px 0;">
<h3>%s</h3>
<img src="cid:%s" alt="QR %s" style="max-width: 300px;">
<p style="color: #666; font-size: 14px;">Code: %s</p>
</div>
`, voucher.MealType, cid, voucher.MealType, voucher.Token)
}

const htmlFooter = `<p style="color: #777; font-size: 12px;">This is an automated message, please do not reply.</p>
</body></html>`

// DisabledSink is the sink used when SMTP is not configured. Every send is
// reported as skipped so issuance keeps working without a relay.
type DisabledSink struct {
	logger *zap.Logger
}

// NewDisabledSink creates a sink that never attempts delivery.
func NewDisabledSink(logger *zap.Logger) *DisabledSink {
	return &DisabledSink{logger: logger}
}

// SendVouchers reports the delivery as skipped.
func (s *DisabledSink) SendVouchers(ctx context.Context, identity entity.AttendeeIdentity, vouchers []*entity.Voucher) port.NotificationStatus {
	s.logger.Info("Notification sink disabled, skipping delivery",
		zap.String("external_id", identity.ExternalID))
	return port.NotificationSkipped
}

// Verify interface compliance
var (
	_ port.NotificationSink = (*Sender)(nil)
	_ port.NotificationSink = (*DisabledSink)(nil)
)
