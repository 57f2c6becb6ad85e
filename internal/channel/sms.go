package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"golang.org/x/time/rate"
)

// SMS bodies longer than this are truncated to keep to a few segments
const maxSMSLength = 320

// SMSConfig holds SMS provider configuration
type SMSConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
	RatePerSec float64
}

// SMSSender sends notifications through the Twilio messages API
type SMSSender struct {
	config  SMSConfig
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewSMSSender creates a new SMS sender throttled to config.RatePerSec
func NewSMSSender(config SMSConfig, log *logger.Logger) *SMSSender {
	limit := rate.Inf
	burst := 1
	if config.RatePerSec > 0 {
		limit = rate.Limit(config.RatePerSec)
		burst = int(config.RatePerSec)
		if burst < 1 {
			burst = 1
		}
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.twilio.com"
	}

	return &SMSSender{
		config:  config,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(limit, burst),
		log:     log,
	}
}

// Channel implements Sender
func (s *SMSSender) Channel() domain.Channel { return domain.ChannelSMS }

type providerError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send delivers a text message to the user's phone
func (s *SMSSender) Send(ctx context.Context, to *domain.User, msg *Message) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sms rate limiter: %w", err)
	}

	from := s.config.FromNumber
	if msg.SMS != nil && msg.SMS.SenderID != "" {
		from = msg.SMS.SenderID
	}

	form := url.Values{}
	form.Set("To", to.Phone)
	form.Set("From", from)
	form.Set("Body", smsBody(msg))

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", strings.TrimRight(s.config.BaseURL, "/"), s.config.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.SetBasicAuth(s.config.AccountSID, s.config.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var perr providerError
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &perr) == nil && perr.Message != "" {
			return fmt.Errorf("sms provider rejected message (%d): %s", perr.Code, perr.Message)
		}
		return fmt.Errorf("sms provider returned status %d", resp.StatusCode)
	}

	s.log.Debug("SMS sent", "notification_id", msg.NotificationID.Hex(), "type", msg.Type)
	return nil
}

func smsBody(msg *Message) string {
	body := msg.Title
	if msg.Body != "" {
		body = msg.Title + ": " + msg.Body
	}
	if msg.SMS != nil && msg.SMS.Body != "" {
		body = msg.SMS.Body
	}
	if r := []rune(body); len(r) > maxSMSLength {
		body = string(r[:maxSMSLength-3]) + "..."
	}
	return body
}
