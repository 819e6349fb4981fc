package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	eskizapi "github.com/iota-uz/eskiz"

	"github.com/veritas-edu/campus-sdk/modules/exeat/domain/exeatrequest"
	"github.com/veritas-edu/campus-sdk/pkg/configuration"
)

const (
	smsMaxRetries = 3
	smsBaseDelay  = time.Second
	smsSendURL    = "https://notify.eskiz.uz/api/message/sms/send"
)

// EskizSender is the SMS/WhatsApp-alternative channel. It is wired but
// disabled by default (Enabled flag); when disabled every send is a no-op.
type EskizSender struct {
	client *eskizapi.APIClient
	opts   configuration.EskizOptions
	httpc  *http.Client

	mu    sync.Mutex
	token string
}

func NewEskizSender(opts configuration.EskizOptions) *EskizSender {
	return &EskizSender{
		client: eskizapi.NewAPIClient(eskizapi.NewConfiguration()),
		opts:   opts,
		httpc:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *EskizSender) StatusChanged(ctx context.Context, req exeatrequest.ExeatRequest) error {
	// Students are reached over email; SMS covers the parent path only.
	return nil
}

func (s *EskizSender) ParentConsentRequested(ctx context.Context, cr ConsentRequest) error {
	if !s.opts.Enabled {
		return nil
	}
	if cr.ParentPhone == "" {
		return errors.New("parent phone is empty")
	}

	text := fmt.Sprintf(
		"Exeat consent needed for your ward. Approve: %s Decline: %s",
		cr.ApproveLink, cr.DeclineLink,
	)
	return s.sendSMS(ctx, cr.ParentPhone, text)
}

func (s *EskizSender) sendSMS(ctx context.Context, phone, text string) error {
	token, err := s.currentToken(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]string{
		"mobile_phone": phone,
		"message":      text,
		"from":         s.opts.Sender,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, smsSendURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("eskiz send failed with status %d", resp.StatusCode)
	}
	return nil
}

func (s *EskizSender) currentToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}
	return s.refreshTokenLocked(ctx)
}

func (s *EskizSender) refreshTokenLocked(ctx context.Context) (string, error) {
	if ctx == nil {
		return "", errors.New("context cannot be nil")
	}

	var lastErr error
	for attempt := 0; attempt < smsMaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * smsBaseDelay
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		resp, httpResp, err := s.client.DefaultApi.
			Login(ctx).
			Email(s.opts.Email).
			Password(s.opts.Password).
			Execute()

		if httpResp != nil {
			_ = httpResp.Body.Close()
		}

		if err != nil {
			lastErr = err
			continue
		}

		data := resp.GetData()
		if data.Token == nil {
			lastErr = errors.New("access token is null in response from Eskiz auth API")
			continue
		}

		token := data.GetToken()
		if token == "" {
			lastErr = errors.New("received empty token from Eskiz auth API")
			continue
		}

		s.token = token
		return token, nil
	}

	return "", lastErr
}
