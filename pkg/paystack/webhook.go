package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// SignatureHeader carries the HMAC-SHA512 of the raw webhook body.
const SignatureHeader = "x-paystack-signature"

// EventChargeSuccess is the webhook event emitted when a charge completes.
const EventChargeSuccess = "charge.success"

// VerifySignature checks a webhook signature against the secret key.
func VerifySignature(secretKey string, body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if secretKey == "" || signature == "" {
		return false
	}
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

// Sign computes the signature Paystack would send for body.
func Sign(secretKey string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// WebhookEvent is the outer envelope of a webhook delivery.
type WebhookEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ChargeData is the data block of a charge.success event.
type ChargeData struct {
	ID        int64          `json:"id"`
	Reference string         `json:"reference"`
	Amount    int64          `json:"amount"`
	Status    string         `json:"status"`
	Currency  string         `json:"currency"`
	Metadata  ChargeMetadata `json:"metadata"`
}

// ChargeMetadata is the custom metadata attached at checkout.
type ChargeMetadata struct {
	OrderID string `json:"order_id"`
}

// UnmarshalJSON tolerates metadata sent as an empty string, which Paystack does
// when a charge carried none.
func (m *ChargeMetadata) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" || trimmed == "null" || trimmed == `""` || strings.HasPrefix(trimmed, `"`) {
		*m = ChargeMetadata{}
		return nil
	}
	type alias ChargeMetadata
	var out alias
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*m = ChargeMetadata(out)
	return nil
}
