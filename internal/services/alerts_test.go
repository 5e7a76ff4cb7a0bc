package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jstittsworth/league-analytics/pkg/config"
)

func TestNewAlertSenderSelectsProvider(t *testing.T) {
	logger := testLogger()

	assert.IsType(t, &MockAlertSender{}, NewAlertSender(&config.Config{}, logger))

	// Twilio without complete credentials degrades to the mock sender
	// instead of failing startup.
	partial := &config.Config{AlertSMSProvider: "twilio", TwilioAccountSID: "AC123"}
	assert.IsType(t, &MockAlertSender{}, NewAlertSender(partial, logger))

	full := &config.Config{
		AlertSMSProvider: "twilio",
		AlertSMSTo:       "+15550001111",
		TwilioAccountSID: "AC123",
		TwilioAuthToken:  "token",
		TwilioFromNumber: "+15552223333",
	}
	assert.IsType(t, &TwilioAlertSender{}, NewAlertSender(full, logger))

	// A configured cooldown wraps whichever sender was chosen.
	throttled := &config.Config{AlertCooldown: time.Hour}
	assert.IsType(t, &CooldownAlertSender{}, NewAlertSender(throttled, logger))
}

type countingSender struct {
	sent int
}

func (s *countingSender) Send(ctx context.Context, message string) error {
	s.sent++
	return nil
}

func TestCooldownAlertSenderSuppressesRepeats(t *testing.T) {
	inner := &countingSender{}
	sender := NewCooldownAlertSender(inner, time.Hour, testLogger())
	ctx := context.Background()

	assert.NoError(t, sender.Send(ctx, "update failed"))
	assert.Equal(t, 1, inner.sent)

	// Second alert inside the window is swallowed without error.
	assert.NoError(t, sender.Send(ctx, "update failed again"))
	assert.Equal(t, 1, inner.sent)

	// Once the window has passed, alerts flow again.
	sender.lastSent = time.Now().Add(-2 * time.Hour)
	assert.NoError(t, sender.Send(ctx, "update failed later"))
	assert.Equal(t, 2, inner.sent)
}

func TestMockAlertSenderNeverFails(t *testing.T) {
	sender := NewMockAlertSender(testLogger())
	assert.NoError(t, sender.Send(context.Background(), "update failed"))
}
