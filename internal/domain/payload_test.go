package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPayloadToData_TypedPayload(t *testing.T) {
	id := primitive.NewObjectID()
	data, err := PayloadToData(&LoanPayload{
		LoanID:            id,
		InstallmentNumber: 2,
		DueDate:           "2026-03-01",
		Amount:            150.5,
	})
	require.NoError(t, err)

	assert.Equal(t, id, data["loanId"])
	assert.Equal(t, "2026-03-01", data["dueDate"])
	assert.EqualValues(t, 2, data["installmentNumber"])
	assert.NotContains(t, data, "loanKind", "omitempty fields should not be stored")
}

func TestPayloadToData_NilAndRaw(t *testing.T) {
	data, err := PayloadToData(nil)
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = PayloadToData(RawPayload{"campaign": "spring"})
	require.NoError(t, err)
	assert.Equal(t, "spring", data["campaign"])
}

func TestDecodePayload_RoundTripsRegisteredShape(t *testing.T) {
	bookingID := primitive.NewObjectID()
	when := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	data, err := PayloadToData(&BookingPayload{BookingID: bookingID, BookingDate: when, ReminderKind: "24h"})
	require.NoError(t, err)

	p, err := DecodePayload(TypeBookingReminder, data)
	require.NoError(t, err)

	booking, ok := p.(*BookingPayload)
	require.True(t, ok, "expected *BookingPayload, got %T", p)
	assert.Equal(t, bookingID, booking.BookingID)
	assert.Equal(t, "24h", booking.ReminderKind)
	assert.True(t, when.Equal(booking.BookingDate))
}

func TestDecodePayload_UnregisteredTypeIsRaw(t *testing.T) {
	p, err := DecodePayload(TypeSystemUpdate, map[string]any{"version": "2.1"})
	require.NoError(t, err)
	assert.Equal(t, RawPayload{"version": "2.1"}, p)
}

func TestPayloadSchemas_OnlyKnownTypes(t *testing.T) {
	for typ, schema := range PayloadSchemas {
		assert.True(t, typ.IsKnown(), "schema registered for unknown type %s", typ)
		assert.NotNil(t, schema())
	}
}

func TestDecodeJSONPayload_EventData(t *testing.T) {
	id := primitive.NewObjectID()
	p, err := DecodeJSONPayload(TypeBookingConfirmed, map[string]any{
		"bookingId":   id.Hex(),
		"serviceName": "Deep cleaning",
		"bookingDate": "2026-05-02T09:30:00Z",
	})
	require.NoError(t, err)

	booking, ok := p.(*BookingPayload)
	require.True(t, ok)
	assert.Equal(t, id, booking.BookingID)
	assert.Equal(t, "Deep cleaning", booking.ServiceName)
	assert.True(t, booking.BookingDate.Equal(time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)))

	_, err = DecodeJSONPayload(TypeBookingConfirmed, map[string]any{"bookingId": "not-an-id"})
	assert.Error(t, err)
}
