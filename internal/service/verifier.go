package service

import "context"

// Verification is the outcome of a read-only payment status check.
// Amount is in rupees, converted from the gateway's paise.
type Verification struct {
	Success          bool
	Status           string
	PaymentID        string
	OrderID          string
	Amount           float64
	Currency         string
	ErrorDescription string
}

// Verifier performs side-effect-free payment verification against the
// gateway.  Safe to call any number of times for the same payment.
type Verifier struct {
	NewGateway GatewayFactory
}

// VerifyPayment fetches the payment and reports whether its status counts
// as successful (captured or authorized).  Failure statuses are not
// errors: the caller receives the observed status and any gateway-provided
// description so it can present them to the payer.
func (v *Verifier) VerifyPayment(ctx context.Context, paymentID string) (*Verification, error) {
	gw, err := v.NewGateway()
	if err != nil {
		return nil, err
	}
	payment, err := gw.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return &Verification{
		Success:          StatusSuccessful(payment.Status),
		Status:           payment.Status,
		PaymentID:        payment.ID,
		OrderID:          payment.OrderID,
		Amount:           float64(payment.Amount) / 100,
		Currency:         payment.Currency,
		ErrorDescription: payment.ErrorDescription,
	}, nil
}
