package model

// IntentCustomer identifies the paying customer inside a booking intent.
// ID is set when the booking page already knows the customer; otherwise
// the phone number is the lookup key after normalization.
type IntentCustomer struct {
	ID    *uint64 `json:"id,omitempty"`
	Name  string  `json:"name"`
	Phone string  `json:"phone"`
	Email string  `json:"email,omitempty"`
}

// IntentSlot is a single time window within the selected date.  Times are
// venue-local "HH:MM" strings, matching what the booking page displays.
type IntentSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// IntentPricing carries the totals quoted to the customer at checkout, in
// rupees.  Final is what the gateway order was created for; Original and
// Discount let us reconstruct the discount percentage per booking row.
type IntentPricing struct {
	Original float64  `json:"original"`
	Discount float64  `json:"discount"`
	Final    float64  `json:"final"`
	Coupons  []string `json:"coupons,omitempty"`
}

// BookingIntent is the draft booking embedded in the gateway order's notes
// at order-creation time.  It is immutable once embedded: the materializer
// reads it back verbatim after payment and never consults the client again.
// One booking row is produced per (station, slot) pair.
type BookingIntent struct {
	Customer         IntentCustomer `json:"customer"`
	SelectedStations []string       `json:"selected_stations"`
	Slots            []IntentSlot   `json:"slots"`
	SelectedDate     string         `json:"selected_date"`
	Duration         int            `json:"duration"`
	Pricing          IntentPricing  `json:"pricing"`
}
