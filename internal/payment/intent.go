package payment

import (
	"fmt"
	"strconv"
	"time"
)

const intentSource = "vehicle-rental-system"

// BookingIntent travels in the provider order's notes so the order describes the booking
// even if no local row exists yet.
type BookingIntent struct {
	VehicleID           string
	UserID              string
	PickupAt            time.Time
	ReturnAt            time.Time
	PickupLocation      string
	Notes               string
	TotalHours          int
	AmountMinor         int64
	OriginalAmountMinor int64
	TestMode            bool
}

func (i BookingIntent) ToNotes() map[string]string {
	return map[string]string{
		"vehicleId":       i.VehicleID,
		"userId":          i.UserID,
		"pickupDate":      i.PickupAt.UTC().Format(time.RFC3339),
		"returnDate":      i.ReturnAt.UTC().Format(time.RFC3339),
		"totalHours":      strconv.Itoa(i.TotalHours),
		"pickupLocation":  i.PickupLocation,
		"specialRequests": i.Notes,
		"source":          intentSource,
		"testingMode":     strconv.FormatBool(i.TestMode),
		"originalAmount":  strconv.FormatInt(i.OriginalAmountMinor, 10),
	}
}

// IntentFromNotes rebuilds the intent. amountMinor comes from the order itself, not the notes.
func IntentFromNotes(notes map[string]string, amountMinor int64) (BookingIntent, error) {
	if notes["source"] != intentSource {
		return BookingIntent{}, fmt.Errorf("order was not created by this service")
	}
	pickup, err := time.Parse(time.RFC3339, notes["pickupDate"])
	if err != nil {
		return BookingIntent{}, fmt.Errorf("invalid pickup date in order notes: %w", err)
	}
	ret, err := time.Parse(time.RFC3339, notes["returnDate"])
	if err != nil {
		return BookingIntent{}, fmt.Errorf("invalid return date in order notes: %w", err)
	}
	hours, err := strconv.Atoi(notes["totalHours"])
	if err != nil {
		return BookingIntent{}, fmt.Errorf("invalid total hours in order notes: %w", err)
	}
	original, err := strconv.ParseInt(notes["originalAmount"], 10, 64)
	if err != nil {
		original = amountMinor
	}
	if notes["vehicleId"] == "" || notes["userId"] == "" {
		return BookingIntent{}, fmt.Errorf("order notes are missing vehicle or user")
	}

	return BookingIntent{
		VehicleID:           notes["vehicleId"],
		UserID:              notes["userId"],
		PickupAt:            pickup,
		ReturnAt:            ret,
		PickupLocation:      notes["pickupLocation"],
		Notes:               notes["specialRequests"],
		TotalHours:          hours,
		AmountMinor:         amountMinor,
		OriginalAmountMinor: original,
		TestMode:            notes["testingMode"] == "true",
	}, nil
}
