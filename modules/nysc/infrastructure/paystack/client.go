package paystack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"

	"github.com/veritas-edu/campus-sdk/pkg/configuration"
)

// APIError is a non-transport failure: the gateway answered, but with a
// non-2xx status. Callers treat it as a non-fatal verification outcome
// rather than an infrastructure error.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paystack: %d %s", e.StatusCode, e.Message)
}

// VerifyResult is the decoded verification outcome for one transaction
// reference. Raw holds the gateway's full response body verbatim.
type VerifyResult struct {
	Reference  string
	Status     string
	AmountKobo int64
	Currency   string
	PaidAt     *time.Time
	Raw        json.RawMessage
}

type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewClient(opts configuration.PaystackOptions) *Client {
	return &Client{
		baseURL:   opts.BaseURL,
		secretKey: opts.SecretKey,
		http: &http.Client{
			Timeout: opts.RequestTimeout,
		},
	}
}

type verifyEnvelope struct {
	Status  bool       `json:"status"`
	Message string     `json:"message"`
	Data    verifyData `json:"data"`
}

type verifyData struct {
	Reference string     `json:"reference"`
	Status    string     `json:"status"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	PaidAt    *time.Time `json:"paid_at"`
}

// Verify fetches the gateway's view of one transaction by reference.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	endpoint := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, url.PathEscape(reference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build verify request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "verify request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read verify response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope verifyEnvelope
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
			apiErr.Message = envelope.Message
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr
	}

	var envelope verifyEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.Wrap(err, "failed to decode verify response")
	}
	if !envelope.Status {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}

	return &VerifyResult{
		Reference:  envelope.Data.Reference,
		Status:     envelope.Data.Status,
		AmountKobo: envelope.Data.Amount,
		Currency:   envelope.Data.Currency,
		PaidAt:     envelope.Data.PaidAt,
		Raw:        json.RawMessage(body),
	}, nil
}
