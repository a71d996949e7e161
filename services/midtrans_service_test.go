package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-reservation/models"
)

func TestMidtransService_ValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  MidtransConfig
		wantErr bool
	}{
		{
			name:    "valid config",
			config:  MidtransConfig{ServerKey: "test-server-key"},
			wantErr: false,
		},
		{
			name:    "missing server key",
			config:  MidtransConfig{IsProduction: true},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewMidtransService(tt.config).ValidateConfig()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMidtransService_CheckTransactionStatus(t *testing.T) {
	tests := []struct {
		name           string
		orderID        string
		mockResponse   string
		mockStatusCode int
		wantStatus     string
		wantErr        bool
	}{
		{
			name:           "success status",
			orderID:        "pay-order-1",
			mockResponse:   `{"order_id": "pay-order-1", "transaction_status": "settlement", "gross_amount": "150000.00"}`,
			mockStatusCode: http.StatusOK,
			wantStatus:     "settlement",
		},
		{
			name:           "pending status without order id",
			orderID:        "pay-order-2",
			mockResponse:   `{"transaction_status": "pending"}`,
			mockStatusCode: http.StatusOK,
			wantStatus:     "pending",
		},
		{
			name:           "error status",
			orderID:        "pay-order-3",
			mockResponse:   `{"status_message": "Transaction doesn't exist."}`,
			mockStatusCode: http.StatusNotFound,
			wantErr:        true,
		},
		{
			name:           "malformed body",
			orderID:        "pay-order-4",
			mockResponse:   `{not json`,
			mockStatusCode: http.StatusOK,
			wantErr:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v2/"+tt.orderID+"/status", r.URL.Path)
				user, _, ok := r.BasicAuth()
				assert.True(t, ok)
				assert.Equal(t, "test-server-key", user)
				w.WriteHeader(tt.mockStatusCode)
				w.Write([]byte(tt.mockResponse))
			}))
			defer server.Close()

			ms := NewMidtransService(MidtransConfig{ServerKey: "test-server-key", BaseURL: server.URL + "/"})
			status, err := ms.CheckTransactionStatus(context.Background(), tt.orderID)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, status.TransactionStatus)
			assert.Equal(t, tt.orderID, status.OrderID)
		})
	}
}

func TestMidtransService_Signature(t *testing.T) {
	ms := NewMidtransService(MidtransConfig{ServerKey: "test-server-key"})
	sig := ms.Sign("pay-1", "200", "150000.00")

	assert.Len(t, sig, 128)
	assert.True(t, ms.ValidateSignature("pay-1", "200", "150000.00", sig))
	assert.False(t, ms.ValidateSignature("pay-1", "200", "1.00", sig))
	assert.False(t, ms.ValidateSignature("pay-1", "200", "150000.00", ""))

	other := NewMidtransService(MidtransConfig{ServerKey: "another-key"})
	assert.False(t, other.ValidateSignature("pay-1", "200", "150000.00", sig))
}

func TestMidtransNotification_ToPaymentEvent(t *testing.T) {
	tests := []struct {
		name        string
		n           MidtransNotification
		wantOK      bool
		wantOutcome models.PaymentOutcome
		wantAmount  int64
		wantErr     bool
	}{
		{"settlement", MidtransNotification{OrderID: "p", TransactionStatus: "settlement", GrossAmount: "150000.00"}, true, models.OutcomeSucceeded, 15000000, false},
		{"accepted capture", MidtransNotification{OrderID: "p", TransactionStatus: "capture", FraudStatus: "accept", GrossAmount: "10"}, true, models.OutcomeSucceeded, 1000, false},
		{"challenged capture", MidtransNotification{OrderID: "p", TransactionStatus: "capture", FraudStatus: "challenge"}, false, "", 0, false},
		{"denied capture", MidtransNotification{OrderID: "p", TransactionStatus: "capture", FraudStatus: "deny"}, true, models.OutcomeFailed, 0, false},
		{"expire", MidtransNotification{OrderID: "p", TransactionStatus: "expire", GrossAmount: "5.5"}, true, models.OutcomeFailed, 550, false},
		{"pending", MidtransNotification{OrderID: "p", TransactionStatus: "pending"}, false, "", 0, false},
		{"bad amount", MidtransNotification{OrderID: "p", TransactionStatus: "settlement", GrossAmount: "1.234"}, false, "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok, err := tt.n.ToPaymentEvent()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantOutcome, ev.Outcome)
			assert.Equal(t, tt.wantAmount, ev.AmountCents)
			assert.Equal(t, "p", ev.PaymentReference)
			assert.Nil(t, ev.ReservationID)
		})
	}

	ev, ok, err := MidtransNotification{OrderID: "pay-9", TransactionStatus: "settlement", CustomField1: " res-1 "}.ToPaymentEvent()
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, ev.ReservationID)
	assert.Equal(t, "res-1", *ev.ReservationID)
}

func TestParseAmountCents(t *testing.T) {
	for in, want := range map[string]int64{"": 0, "0": 0, "99": 9900, "12.3": 1230, "12.34": 1234, " 7.05 ": 705} {
		got, err := parseAmountCents(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"-1", "abc", "1.2.3", "1.999"} {
		_, err := parseAmountCents(in)
		assert.Error(t, err, in)
	}
}
