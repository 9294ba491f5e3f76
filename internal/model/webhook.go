package model

import "encoding/json"

// WebhookEvent mirrors the gateway's push payload: an event name plus a map
// of entity wrappers, e.g. {"event":"payment.captured","payload":{"payment":
// {"entity":{...}}}}.  Only the entities we classify are decoded further.
type WebhookEvent struct {
	Event   string                   `json:"event"`
	Payload map[string]WebhookEntity `json:"payload"`
}

// WebhookEntity is the single-key wrapper the gateway puts around each
// entity in a webhook payload.
type WebhookEntity struct {
	Entity json.RawMessage `json:"entity"`
}

// WebhookPayment is the subset of the payment entity the webhook receiver
// logs and dedups on.  Amount is in paise.
type WebhookPayment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Method           string `json:"method"`
	ErrorDescription string `json:"error_description"`
}
