package paystack_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veritas-edu/campus-sdk/modules/nysc/infrastructure/paystack"
	"github.com/veritas-edu/campus-sdk/pkg/configuration"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *paystack.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return paystack.NewClient(configuration.PaystackOptions{
		SecretKey:      "sk_test_secret",
		BaseURL:        srv.URL,
		RequestTimeout: 5 * time.Second,
	})
}

func TestVerifySuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transaction/verify/TEST-ABC123", r.URL.Path)
		require.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": true,
			"message": "Verification successful",
			"data": {
				"reference": "TEST-ABC123",
				"status": "success",
				"amount": 1000000,
				"currency": "NGN",
				"paid_at": "2025-03-10T09:15:00Z"
			}
		}`))
	})

	result, err := client.Verify(context.Background(), "TEST-ABC123")
	require.NoError(t, err)
	require.Equal(t, "TEST-ABC123", result.Reference)
	require.Equal(t, "success", result.Status)
	require.Equal(t, int64(1000000), result.AmountKobo)
	require.Equal(t, "NGN", result.Currency)
	require.NotNil(t, result.PaidAt)
	require.Equal(t, time.Date(2025, 3, 10, 9, 15, 0, 0, time.UTC), result.PaidAt.UTC())
	require.NotEmpty(t, result.Raw)
}

func TestVerifyNotFoundIsAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status": false, "message": "Transaction reference not found"}`))
	})

	_, err := client.Verify(context.Background(), "MISSING")
	var apiErr *paystack.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	require.Equal(t, "Transaction reference not found", apiErr.Message)
}

func TestVerifyFalseEnvelopeIsAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": false, "message": "Invalid key"}`))
	})

	_, err := client.Verify(context.Background(), "TEST-ABC123")
	var apiErr *paystack.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Invalid key", apiErr.Message)
}

func TestVerifyTransportFailure(t *testing.T) {
	client := paystack.NewClient(configuration.PaystackOptions{
		SecretKey:      "sk_test_secret",
		BaseURL:        "http://127.0.0.1:1",
		RequestTimeout: 500 * time.Millisecond,
	})

	_, err := client.Verify(context.Background(), "TEST-ABC123")
	require.Error(t, err)
	var apiErr *paystack.APIError
	require.False(t, errors.As(err, &apiErr))
}
