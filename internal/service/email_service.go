package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"simulation-server/internal/email"
	"simulation-server/internal/messaging"
	"simulation-server/internal/models"
	"simulation-server/internal/repository"

	"go.uber.org/zap"
)

// Назначения одноразовых кодов
const (
	OTPPurposeVerify = "verify"
	OTPPurposeReset  = "reset"
)

const otpDigits = 6

type otpPurpose struct {
	subject string
	title   string
}

var otpPurposes = map[string]otpPurpose{
	OTPPurposeVerify: {subject: "Your Verification Code", title: "Email Verification"},
	OTPPurposeReset:  {subject: "Password Reset Code", title: "Password Reset"},
}

// EmailConfig - параметры писем.
type EmailConfig struct {
	PlatformURL string
	OTPTTL      time.Duration
}

// EmailService отправляет транзакционные письма и ведет одноразовые коды.
// Реализует messaging.EmailTaskHandler для воркера очереди.
type EmailService struct {
	sender   email.Sender
	renderer *email.Renderer
	otps     repository.OTPRepository
	cfg      EmailConfig
	logger   *zap.Logger
}

var _ messaging.EmailTaskHandler = (*EmailService)(nil)

func NewEmailService(
	sender email.Sender,
	renderer *email.Renderer,
	otps repository.OTPRepository,
	cfg EmailConfig,
	logger *zap.Logger,
) *EmailService {
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 10 * time.Minute
	}
	return &EmailService{
		sender:   sender,
		renderer: renderer,
		otps:     otps,
		cfg:      cfg,
		logger:   logger.Named("EmailService"),
	}
}

// SendOTP генерирует код, сохраняет его хэш и отправляет письмо.
func (s *EmailService) SendOTP(ctx context.Context, to, name, purpose string) error {
	if err := validateEmail(to); err != nil {
		return err
	}
	if purpose == "" {
		purpose = OTPPurposeVerify
	}
	p, ok := otpPurposes[purpose]
	if !ok {
		return fmt.Errorf("%w: unknown otp purpose %q", models.ErrBadRequest, purpose)
	}

	code, err := generateOTP(otpDigits)
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}
	if err := s.otps.Save(ctx, to, purpose, code, s.cfg.OTPTTL); err != nil {
		return err
	}

	html, err := s.renderer.Render(email.TemplateOTP, p.subject, email.OTPData{
		Name:          name,
		Code:          code,
		Purpose:       p.title,
		ExpiryMinutes: int(s.cfg.OTPTTL / time.Minute),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, "otp_"+purpose, email.Message{To: to, Name: name, Subject: p.subject, HTML: html})
}

// VerifyOTP проверяет код. Использованный код удаляется.
func (s *EmailService) VerifyOTP(ctx context.Context, to, code, purpose string) error {
	if purpose == "" {
		purpose = OTPPurposeVerify
	}
	if _, ok := otpPurposes[purpose]; !ok {
		return fmt.Errorf("%w: unknown otp purpose %q", models.ErrBadRequest, purpose)
	}
	return s.otps.Verify(ctx, to, purpose, strings.TrimSpace(code))
}

// SendWelcome отправляет приветственное письмо.
func (s *EmailService) SendWelcome(ctx context.Context, to, name, verificationURL string) error {
	const subject = "Welcome to TURNVE!"
	if err := validateEmail(to); err != nil {
		return err
	}
	html, err := s.renderer.Render(email.TemplateWelcome, subject, email.WelcomeData{
		Name:            name,
		PlatformURL:     s.cfg.PlatformURL,
		VerificationURL: verificationURL,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, "welcome", email.Message{To: to, Name: name, Subject: subject, HTML: html})
}

// HandleEmailTask отправляет письмо по задаче из очереди.
func (s *EmailService) HandleEmailTask(ctx context.Context, task messaging.EmailTask) error {
	switch task.Type {
	case messaging.EmailTaskSimulationReport:
		r := task.Report
		subject := "Your simulation results"
		html, err := s.renderer.Render(email.TemplateSimulationReport, subject, email.ReportData{
			Name:          displayName(task),
			ScenarioID:    r.ScenarioID,
			ScenarioTitle: r.ScenarioTitle,
			Decisions:     r.Decisions,
			Score:         r.Score,
			CoachSummary:  r.CoachSummary,
		})
		if err != nil {
			return err
		}
		return s.send(ctx, string(task.Type), email.Message{To: task.To, Name: task.Name, Subject: subject, HTML: html})

	case messaging.EmailTaskSubscriptionActivated:
		sub := task.Subscription
		subject := "Your TURNVE subscription is active"
		html, err := s.renderer.Render(email.TemplateSubscriptionActivated, subject, email.SubscriptionData{
			Name:      displayName(task),
			PlanCode:  sub.PlanCode,
			Reference: sub.Reference,
			EndsAt:    sub.EndsAt,
		})
		if err != nil {
			return err
		}
		return s.send(ctx, string(task.Type), email.Message{To: task.To, Name: task.Name, Subject: subject, HTML: html})

	default:
		return fmt.Errorf("%w: unsupported type %q", messaging.ErrInvalidTask, task.Type)
	}
}

func (s *EmailService) send(ctx context.Context, kind string, msg email.Message) error {
	err := s.sender.Send(ctx, msg)
	emailsSent.WithLabelValues(kind, resultLabel(err)).Inc()
	if err != nil {
		s.logger.Error("Failed to send email", zap.String("kind", kind), zap.Error(err))
		return err
	}
	s.logger.Info("Email sent", zap.String("kind", kind))
	return nil
}

func displayName(task messaging.EmailTask) string {
	if task.Name != "" {
		return task.Name
	}
	return "there"
}

// generateOTP возвращает код из n цифр, равномерно распределенный.
func generateOTP(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}
	return sb.String(), nil
}
