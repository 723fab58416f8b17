// Package sender превращает уведомления из очереди в письма.
package sender

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/bitforex-academy/internal/lib/sl"
	"github.com/magabrotheeeer/bitforex-academy/internal/lib/smtp"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
)

// ErrUnknownKind уведомление неизвестного вида; повторная доставка не поможет.
var ErrUnknownKind = errors.New("unknown notification kind")

// Service отправитель писем.
type Service struct {
	transport smtp.Dialer
	siteURL   string
	log       *slog.Logger
}

// NewService создаёт Service. siteURL подставляется в ссылки писем.
func NewService(transport smtp.Dialer, siteURL string, log *slog.Logger) *Service {
	return &Service{
		transport: transport,
		siteURL:   strings.TrimRight(siteURL, "/"),
		log:       log,
	}
}

// Handle обрабатывает тело сообщения из очереди. Неразбираемые сообщения и
// уведомления неизвестного вида пропускаются, чтобы не крутиться в очереди вечно.
func (s *Service) Handle(body []byte) error {
	const op = "services.sender.Handle"
	var n models.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		s.log.Error("failed to unmarshal notification, dropping", sl.Err(err))
		return nil
	}
	if n.Email == "" {
		s.log.Warn("notification without recipient, dropping", slog.String("kind", n.Kind))
		return nil
	}

	subject, text, err := s.compose(n)
	if err != nil {
		s.log.Warn("dropping notification", slog.String("kind", n.Kind), sl.Err(err))
		return nil
	}
	if n.Subject != "" {
		subject = n.Subject
	}
	if err := s.sendEmail([]string{n.Email}, subject, text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) compose(n models.Notification) (string, string, error) {
	greeting := "Hello"
	if n.Name != "" {
		greeting = "Hello, " + n.Name
	}

	switch n.Kind {
	case models.NotifyPaymentApproved:
		return "Your BitForex Academy subscription is active",
			fmt.Sprintf("%s!\n\nYour payment for the %s plan (%s) was approved. Your account is now active.\n\nSign in: %s/login",
				greeting, n.Data["plan"], n.Data["price"], s.siteURL), nil
	case models.NotifyPaymentRejected:
		return "Your BitForex Academy payment was rejected",
			fmt.Sprintf("%s!\n\nWe could not confirm your payment for the %s plan. Please contact the admin in chat or submit a new proof.\n\n%s/plans",
				greeting, n.Data["plan"], s.siteURL), nil
	case models.NotifyPaymentPending:
		return "Subscription request waiting for review",
			fmt.Sprintf("%s!\n\nThe request %s from %s for the %s plan is still pending.\n\n%s/admin",
				greeting, n.Data["request_id"], n.Data["user_email"], n.Data["plan"], s.siteURL), nil
	case models.NotifyPasswordRequest:
		return "Password reset requested",
			fmt.Sprintf("%s!\n\n%s asked to reset their password. Resolve the request in the admin panel.\n\n%s/admin",
				greeting, n.Data["user_email"], s.siteURL), nil
	case models.NotifyPasswordReset:
		return "Your BitForex Academy password was reset",
			fmt.Sprintf("%s!\n\nYour new password is: %s\nPlease change it after signing in.\n\n%s/login",
				greeting, n.Data["password"], s.siteURL), nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownKind, n.Kind)
	}
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	from := s.transport.GetSMTPUser()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get data writer", sl.Err(err))
		return err
	}
	if _, err := wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err := wc.Close(); err != nil {
		s.log.Error("failed to close data writer", sl.Err(err))
		return err
	}
	if err := client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP session", sl.Err(err))
		return err
	}

	s.log.Info("email sent", slog.Any("to", to), slog.String("subject", subject))
	return nil
}
