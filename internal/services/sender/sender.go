// Package sender реализует воркер доставки напоминаний: потребляет сообщения
// конвейера уведомлений и отправляет письма по SMTP. Ошибка отправки
// возвращает сообщение в очередь, повтор берёт на себя брокер.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/access-engine/internal/lib/milestone"
	"github.com/magabrotheeeer/access-engine/internal/lib/sl"
	"github.com/magabrotheeeer/access-engine/internal/lib/smtp"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

// SenderService форматирует и отправляет письма-напоминания.
type SenderService struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport smtp.TransportInterface, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// SendUpcomingReminder отправляет письмо о приближающемся окончании доступа.
func (s *SenderService) SendUpcomingReminder(body []byte) error {
	reminder, err := s.decode(body)
	if err != nil {
		return err
	}
	if reminder.Email == "" {
		// Письмо отправить некуда, возвращать сообщение в очередь бессмысленно.
		s.log.Warn("reminder skipped: user has no email", slog.String("user_uid", reminder.UserUID))
		return nil
	}

	days := "3 дня"
	if reminder.Milestone == string(milestone.UpcomingOneDay) {
		days = "1 день"
	}
	subject := "Напоминание об окончании доступа"
	bodyText := fmt.Sprintf(
		"Здравствуйте, %s!\n\nВаш доступ заканчивается через %s — %s.\n\nПродлите его заранее, чтобы не остаться без подключения.",
		reminder.Label, days, reminder.ExpiresAt.Format(time.DateOnly))

	return s.sendEmail([]string{reminder.Email}, subject, bodyText)
}

// SendExpiredReminder отправляет письмо об уже истёкшем доступе.
func (s *SenderService) SendExpiredReminder(body []byte) error {
	reminder, err := s.decode(body)
	if err != nil {
		return err
	}
	if reminder.Email == "" {
		s.log.Warn("reminder skipped: user has no email", slog.String("user_uid", reminder.UserUID))
		return nil
	}

	subject := "Доступ приостановлен"
	bodyText := fmt.Sprintf(
		"Здравствуйте, %s!\n\nСрок вашего доступа истёк %s, подключение приостановлено.\n\nЧтобы вернуть доступ, оплатите любой из тарифов.",
		reminder.Label, reminder.ExpiresAt.Format(time.DateOnly))

	return s.sendEmail([]string{reminder.Email}, subject, bodyText)
}

func (s *SenderService) decode(body []byte) (*models.Reminder, error) {
	var reminder models.Reminder
	if err := json.Unmarshal(body, &reminder); err != nil {
		s.log.Error("failed to unmarshal reminder", sl.Err(err))
		return nil, fmt.Errorf("error unmarshalling message: %w", err)
	}
	return &reminder, nil
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
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
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", "recipient", addr, sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	_, err = wc.Write([]byte(msg))
	if err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", to)
	return nil
}
