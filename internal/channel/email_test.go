package channel

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRenderEmail(t *testing.T) {
	orderID := primitive.NewObjectID()

	tests := []struct {
		name        string
		msg         *Message
		wantSubject string
		contains    []string
		excludes    []string
	}{
		{
			name: "category heading and details",
			msg: &Message{
				Category: domain.CategoryOrderUpdates,
				Title:    "Your order shipped",
				Body:     "It is on its way.",
				Data:     map[string]any{"orderId": orderID, "orderNumber": "A-100"},
			},
			wantSubject: "Your order shipped",
			contains:    []string{"Orders", "Your order shipped", orderID.Hex(), "A-100"},
		},
		{
			name: "subject override",
			msg: &Message{
				Category: domain.CategoryBookingUpdates,
				Title:    "Reminder",
				Email:    &domain.EmailOptions{Subject: "Tomorrow at 10:00"},
			},
			wantSubject: "Tomorrow at 10:00",
			contains:    []string{"Bookings"},
		},
		{
			name: "unknown category falls back",
			msg: &Message{
				Category: "somethingElse",
				Title:    "Hello",
			},
			wantSubject: "Hello",
			contains:    []string{"Marketplace"},
		},
		{
			name: "XSS protection",
			msg: &Message{
				Title: "Hi",
				Body:  "<script>alert('xss')</script>",
			},
			wantSubject: "Hi",
			contains:    []string{"&lt;script&gt;alert(&#39;xss&#39;)&lt;/script&gt;"},
			excludes:    []string{"<script>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body, err := renderEmail(tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubject, subject)
			for _, s := range tt.contains {
				assert.Contains(t, body, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, body, s)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	id := primitive.NewObjectID()
	when := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	assert.Equal(t, id.Hex(), formatValue(id))
	assert.Equal(t, "Sun, 01 Mar 2026 09:30:00 UTC", formatValue(when))
	assert.Equal(t, "Sun, 01 Mar 2026 09:30:00 UTC", formatValue(primitive.NewDateTimeFromTime(when)))
	assert.Equal(t, "42", formatValue(42))
}

func TestEmailSender_BuildMessage(t *testing.T) {
	s := NewEmailSender(EmailConfig{FromEmail: "noreply@example.com", FromName: "Marketplace"}, logger.NewNop())

	raw := string(s.buildMessage("user@example.com", "Subject line", "<p>hi</p>", domain.EmailOptions{
		ReplyTo: "support@example.com",
		CC:      []string{"a@example.com", "b@example.com"},
	}))

	assert.True(t, strings.HasPrefix(raw, "From: Marketplace <noreply@example.com>\r\n"))
	assert.Contains(t, raw, "To: user@example.com\r\n")
	assert.Contains(t, raw, "Cc: a@example.com, b@example.com\r\n")
	assert.Contains(t, raw, "Reply-To: support@example.com\r\n")
	assert.Contains(t, raw, "Content-Type: text/html; charset=UTF-8\r\n\r\n<p>hi</p>")
}

// BenchmarkRenderEmail benchmarks layout rendering
func BenchmarkRenderEmail(b *testing.B) {
	msg := &Message{
		Category: domain.CategoryBookingUpdates,
		Title:    "Booking reminder",
		Body:     "Your booking starts tomorrow.",
		Data:     map[string]any{"bookingId": primitive.NewObjectID(), "serviceName": "Haircut"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = renderEmail(msg)
	}
}
