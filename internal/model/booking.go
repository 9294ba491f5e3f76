package model

// Booking statuses.  This service only ever writes StatusConfirmed; later
// transitions (completed, cancelled, no-show) belong to the booking
// lifecycle code outside this subsystem.
const (
	StatusConfirmed = "confirmed"
)

// PaymentModeRazorpay marks rows created from an online gateway payment,
// as opposed to rows entered at the counter by the POS.
const PaymentModeRazorpay = "razorpay"
