package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDefaultPreferences(t *testing.T) {
	prefs := DefaultPreferences(primitive.NewObjectID())

	for _, ch := range []ChannelPreference{prefs.Email, prefs.Push} {
		assert.True(t, ch.Enabled)
		assert.True(t, ch.Allows(CategoryBookingUpdates))
		assert.False(t, ch.Allows(CategoryMarketing))
	}
	assert.True(t, prefs.SMS.Allows(SMSCategoryBookingReminders))
}

func TestChannelPreference_Allows(t *testing.T) {
	tests := []struct {
		name     string
		pref     ChannelPreference
		category string
		want     bool
	}{
		{"disabled channel", ChannelPreference{Enabled: false, Categories: map[string]bool{"orderUpdates": true}}, "orderUpdates", false},
		{"explicit opt out", ChannelPreference{Enabled: true, Categories: map[string]bool{"orderUpdates": false}}, "orderUpdates", false},
		{"explicit opt in to marketing", ChannelPreference{Enabled: true, Categories: map[string]bool{"marketing": true}}, "marketing", true},
		{"missing key uses default", ChannelPreference{Enabled: true, Categories: map[string]bool{}}, "orderUpdates", true},
		{"missing marketing key uses default", ChannelPreference{Enabled: true}, "marketing", false},
		{"empty category", ChannelPreference{Enabled: true}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pref.Allows(tt.category))
		})
	}
}

func TestWithDefaults_FillsMissingKeys(t *testing.T) {
	prefs := &NotificationPreferences{
		Email: ChannelPreference{Enabled: true, Categories: map[string]bool{CategoryMessages: false}},
	}

	full := prefs.WithDefaults()

	assert.False(t, full.Email.Categories[CategoryMessages])
	assert.True(t, full.Email.Categories[CategoryOrderUpdates])
	assert.False(t, full.Email.Categories[CategoryMarketing])
	assert.Len(t, full.SMS.Categories, len(SMSCategories))
	assert.Len(t, prefs.Email.Categories, 1, "original must not be mutated")
}
