package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/jstittsworth/league-analytics/pkg/config"
)

// AlertSender notifies an operator that an update run failed.
type AlertSender interface {
	Send(ctx context.Context, message string) error
}

// NewAlertSender picks the alert channel from configuration. Incomplete
// Twilio credentials fall back to the mock sender so a failed run still
// surfaces in the logs. A non-zero cooldown wraps the sender so repeated
// failures page the operator once per window.
func NewAlertSender(cfg *config.Config, logger *logrus.Logger) AlertSender {
	var sender AlertSender = NewMockAlertSender(logger)
	if cfg.AlertSMSProvider == "twilio" {
		if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFromNumber == "" || cfg.AlertSMSTo == "" {
			logger.Warn("Twilio alerts configured without complete credentials, using mock sender")
		} else {
			sender = NewTwilioAlertSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.AlertSMSTo, logger)
		}
	}
	if cfg.AlertCooldown > 0 {
		return NewCooldownAlertSender(sender, cfg.AlertCooldown, logger)
	}
	return sender
}

// TwilioAlertSender delivers alerts as SMS through Twilio.
type TwilioAlertSender struct {
	client     *twilio.RestClient
	fromNumber string
	toNumber   string
	logger     *logrus.Logger
}

// NewTwilioAlertSender creates a Twilio-backed alert sender.
func NewTwilioAlertSender(accountSID, authToken, fromNumber, toNumber string, logger *logrus.Logger) *TwilioAlertSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioAlertSender{
		client:     client,
		fromNumber: fromNumber,
		toNumber:   toNumber,
		logger:     logger,
	}
}

// Send delivers one SMS to the configured operator number.
func (s *TwilioAlertSender) Send(ctx context.Context, message string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(s.toNumber)
	params.SetFrom(s.fromNumber)
	params.SetBody(message)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send alert SMS: %w", err)
	}
	if resp.Sid != nil {
		s.logger.WithFields(logrus.Fields{"sid": *resp.Sid}).Info("Sent alert SMS")
	} else {
		s.logger.Info("Sent alert SMS")
	}
	return nil
}

// CooldownAlertSender suppresses repeat alerts inside a cooldown window. A
// pipeline retried by cron every few minutes after an upstream outage pages
// the operator once, not once per attempt.
type CooldownAlertSender struct {
	inner    AlertSender
	cooldown time.Duration
	logger   *logrus.Logger

	mu       sync.Mutex
	lastSent time.Time
}

// NewCooldownAlertSender wraps a sender with a minimum interval between
// deliveries.
func NewCooldownAlertSender(inner AlertSender, cooldown time.Duration, logger *logrus.Logger) *CooldownAlertSender {
	return &CooldownAlertSender{
		inner:    inner,
		cooldown: cooldown,
		logger:   logger,
	}
}

// Send forwards the alert unless one was delivered inside the cooldown
// window. A suppressed alert is not an error.
func (s *CooldownAlertSender) Send(ctx context.Context, message string) error {
	s.mu.Lock()
	if !s.lastSent.IsZero() && time.Since(s.lastSent) < s.cooldown {
		s.mu.Unlock()
		s.logger.WithFields(logrus.Fields{"cooldown": s.cooldown.String()}).Info("Alert suppressed inside cooldown window")
		return nil
	}
	s.lastSent = time.Now()
	s.mu.Unlock()

	return s.inner.Send(ctx, message)
}

// MockAlertSender logs alerts instead of delivering them, for development.
type MockAlertSender struct {
	logger *logrus.Logger
}

// NewMockAlertSender creates a log-only alert sender.
func NewMockAlertSender(logger *logrus.Logger) *MockAlertSender {
	return &MockAlertSender{logger: logger}
}

// Send writes the alert to the log.
func (s *MockAlertSender) Send(ctx context.Context, message string) error {
	s.logger.WithFields(logrus.Fields{"message": message}).Info("MOCK ALERT")
	return nil
}
