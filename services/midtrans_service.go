package services

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yeremiapane/restaurant-reservation/models"
)

// MidtransConfig holds Midtrans configuration
type MidtransConfig struct {
	ServerKey    string
	IsProduction bool
	// BaseURL overrides the API host, for tests and proxies.
	BaseURL string
}

// MidtransService verifies Midtrans notifications and polls transaction status.
type MidtransService struct {
	config     *MidtransConfig
	httpClient *http.Client
}

func NewMidtransService(cfg MidtransConfig) *MidtransService {
	return &MidtransService{
		config:     &cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ValidateConfig validates Midtrans configuration
func (ms *MidtransService) ValidateConfig() error {
	if ms.config.ServerKey == "" {
		return fmt.Errorf("MIDTRANS_SERVER_KEY is not set")
	}
	return nil
}

// MidtransNotification is the HTTP notification body. order_id carries our
// payment reference and custom_field1 the reservation id, when there is one.
type MidtransNotification struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	CustomField1      string `json:"custom_field1"`
}

// ValidateSignature checks sha512(order_id + status_code + gross_amount + server_key).
func (ms *MidtransService) ValidateSignature(orderID, statusCode, grossAmount, signature string) bool {
	expected := ms.Sign(orderID, statusCode, grossAmount)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(signature))) == 1
}

// Sign computes the notification signature for the configured server key.
func (ms *MidtransService) Sign(orderID, statusCode, grossAmount string) string {
	hash := sha512.New()
	hash.Write([]byte(orderID + statusCode + grossAmount + ms.config.ServerKey))
	return hex.EncodeToString(hash.Sum(nil))
}

// mapTransactionStatus maps a Midtrans transaction status to a payment outcome.
// ok is false for statuses that are not final yet.
func mapTransactionStatus(status, fraudStatus string) (models.PaymentOutcome, bool) {
	switch status {
	case "settlement":
		return models.OutcomeSucceeded, true
	case "capture":
		if fraudStatus == "" || fraudStatus == "accept" {
			return models.OutcomeSucceeded, true
		}
		if fraudStatus == "deny" {
			return models.OutcomeFailed, true
		}
		return "", false
	case "deny", "cancel", "expire", "failure":
		return models.OutcomeFailed, true
	default:
		return "", false
	}
}

// ToPaymentEvent converts n into a PaymentEvent. ok is false when the
// transaction has not reached a final state and nothing should happen yet.
func (n MidtransNotification) ToPaymentEvent() (PaymentEvent, bool, error) {
	outcome, ok := mapTransactionStatus(n.TransactionStatus, n.FraudStatus)
	if !ok {
		return PaymentEvent{}, false, nil
	}
	amount, err := parseAmountCents(n.GrossAmount)
	if err != nil {
		return PaymentEvent{}, false, err
	}
	ev := PaymentEvent{
		PaymentReference: n.OrderID,
		AmountCents:      amount,
		Outcome:          outcome,
	}
	if id := strings.TrimSpace(n.CustomField1); id != "" {
		ev.ReservationID = &id
	}
	return ev, true, nil
}

// parseAmountCents parses a decimal string such as "150000.00" without going
// through floating point.
func parseAmountCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		return 0, fmt.Errorf("invalid gross amount %q", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w < 0 {
		return 0, fmt.Errorf("invalid gross amount %q", s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid gross amount %q", s)
	}
	return w*100 + f, nil
}

// CheckTransactionStatus fetches the current state of a transaction, for
// reconciling payments whose notification never arrived.
func (ms *MidtransService) CheckTransactionStatus(ctx context.Context, orderID string) (*MidtransNotification, error) {
	url := fmt.Sprintf("%s/v2/%s/status", ms.getBaseURL(), orderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(ms.config.ServerKey+":")))

	resp, err := ms.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("midtrans API error (status %d): %s", resp.StatusCode, string(body))
	}

	var status MidtransNotification
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %w", err)
	}
	if status.OrderID == "" {
		status.OrderID = orderID
	}
	return &status, nil
}

// getBaseURL returns the appropriate Midtrans API base URL
func (ms *MidtransService) getBaseURL() string {
	if ms.config.BaseURL != "" {
		return strings.TrimRight(ms.config.BaseURL, "/")
	}
	if ms.config.IsProduction {
		return "https://api.midtrans.com"
	}
	return "https://api.sandbox.midtrans.com"
}
