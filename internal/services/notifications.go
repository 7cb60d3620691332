package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/harentsoaR/tutor-api/internal/models"
)

const textbeltURL = "https://textbelt.com/text"

// NotificationService sends mail and SMS in the background so callers never
// wait on a provider. Failures are logged, not returned.
type NotificationService struct {
	mailer      Mailer
	textbeltKey string
	textbeltURL string
	client      *http.Client
	log         *zap.Logger
	timeout     time.Duration

	wg sync.WaitGroup
}

func NewNotificationService(mailer Mailer, textbeltKey string, log *zap.Logger) *NotificationService {
	return &NotificationService{
		mailer:      mailer,
		textbeltKey: textbeltKey,
		textbeltURL: textbeltURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log.Named("notify"),
		timeout:     30 * time.Second,
	}
}

// Wait blocks until every queued notification has finished.
func (s *NotificationService) Wait() { s.wg.Wait() }

func (s *NotificationService) dispatch(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (s *NotificationService) mail(ctx context.Context, u *models.User, subject, body string) {
	err := s.mailer.Send(ctx, Message{To: u.Email, ToName: u.FullName, Subject: subject, Text: body})
	if err != nil {
		s.log.Warn("email not sent", zap.String("to", u.Email), zap.String("subject", subject), zap.Error(err))
	}
}

func (s *NotificationService) text(ctx context.Context, u *models.User, body string) {
	if u.Phone == "" {
		return
	}
	if s.textbeltKey == "" {
		s.log.Debug("SMS skipped: no Textbelt key", zap.String("userId", u.ID.Hex()))
		return
	}
	if err := s.sendSmsWithTextbelt(ctx, u.Phone, body); err != nil {
		s.log.Warn("SMS not sent", zap.String("userId", u.ID.Hex()), zap.Error(err))
	}
}

// SendOTP delivers a one-time code by email, and by SMS when the user has a phone.
func (s *NotificationService) SendOTP(u models.User, code, purpose string) {
	subject, body := "Verify your account",
		fmt.Sprintf("Your verification code is %s. It expires in a few minutes.", code)
	if purpose == models.OTPPurposeReset {
		subject, body = "Reset your password",
			fmt.Sprintf("Your password reset code is %s. Ignore this message if you did not ask for it.", code)
	}
	s.dispatch(func(ctx context.Context) {
		s.mail(ctx, &u, subject, body)
		s.text(ctx, &u, body)
	})
}

func (s *NotificationService) SendBookingConfirmation(student, tutor models.User, e models.Enrollment) {
	when := describeSlot(e)
	s.dispatch(func(ctx context.Context) {
		s.mail(ctx, &student, "Lesson booked",
			fmt.Sprintf("Your lesson with %s is confirmed for %s.", tutor.FullName, when))
		s.text(ctx, &student, fmt.Sprintf("Lesson confirmed: %s with %s.", when, tutor.FullName))
		s.mail(ctx, &tutor, "New lesson booked",
			fmt.Sprintf("%s booked a lesson with you on %s.", student.FullName, when))
	})
}

func (s *NotificationService) SendBookingCancelled(student, tutor models.User, e models.Enrollment) {
	when := describeSlot(e)
	s.dispatch(func(ctx context.Context) {
		s.mail(ctx, &tutor, "Lesson cancelled",
			fmt.Sprintf("%s cancelled the lesson on %s. The slot is open again.", student.FullName, when))
	})
}

func (s *NotificationService) SendPaymentReceipt(u models.User, p models.Payment) {
	s.dispatch(func(ctx context.Context) {
		s.mail(ctx, &u, "Payment received",
			fmt.Sprintf("We recorded your payment of %.2f %s (receipt %s).", p.Amount, p.Currency, p.ReceiptNo))
	})
}

func describeSlot(e models.Enrollment) string {
	if e.Date == nil {
		return e.SlotStart
	}
	return fmt.Sprintf("%s %s-%s UTC", e.Date.Format("Jan 2, 2006"), e.SlotStart, e.SlotEnd)
}

type textbeltResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *NotificationService) sendSmsWithTextbelt(ctx context.Context, phone, message string) error {
	postBody, err := json.Marshal(map[string]string{
		"phone":   phone,
		"message": message,
		"key":     s.textbeltKey,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.textbeltURL, bytes.NewReader(postBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("textbelt request: %w", err)
	}
	defer resp.Body.Close()

	var result textbeltResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("textbelt response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("textbelt: %s", result.Error)
	}
	s.log.Debug("SMS sent", zap.String("phone", phone))
	return nil
}
