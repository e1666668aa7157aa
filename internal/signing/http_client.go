package signing

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type HTTPOptions struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

// HTTPSigner calls the remote signing service over JSON/HTTP.
type HTTPSigner struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
}

var _ Signer = (*HTTPSigner)(nil)

func NewHTTPSigner(opts HTTPOptions) (*HTTPSigner, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("signing baseURL required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &HTTPSigner{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		timeout:    timeout,
		maxRetries: maxRetries,
		httpClient: hc,
	}, nil
}

type signRequestBody struct {
	UserID         string `json:"user_id"`
	PIN            string `json:"pin"`
	Payload        string `json:"payload"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type signResponseBody struct {
	SignatureID string `json:"signature_id"`
	Signature   string `json:"signature"`
	PublicKey   string `json:"public_key"`
	// Payload is set when the service replays an earlier signature.
	Payload string `json:"payload,omitempty"`
}

type signatureInfoBody struct {
	SignatureID       string `json:"signature_id"`
	CertificateSerial string `json:"certificate_serial"`
	Algorithm         string `json:"algorithm"`
}

func (c *HTTPSigner) Sign(ctx context.Context, req SignRequest) (SignResult, error) {
	body := signRequestBody{
		UserID:         req.UserID.String(),
		PIN:            req.PIN,
		Payload:        base64.StdEncoding.EncodeToString(req.Payload),
		IdempotencyKey: req.IdempotencyKey,
	}
	var resp signResponseBody
	if err := c.doJSON(ctx, http.MethodPost, "/v1/signatures", body, &resp); err != nil {
		return SignResult{}, err
	}
	if resp.SignatureID == "" || resp.Signature == "" || resp.PublicKey == "" {
		return SignResult{}, fmt.Errorf("%w: incomplete sign response", ErrUnavailable)
	}
	signed := req.Payload
	if resp.Payload != "" {
		b, err := base64.StdEncoding.DecodeString(resp.Payload)
		if err != nil {
			return SignResult{}, fmt.Errorf("%w: sign response payload: %v", ErrUnavailable, err)
		}
		signed = b
	}
	return SignResult{
		SignatureID: resp.SignatureID,
		Signature:   resp.Signature,
		PublicKey:   resp.PublicKey,
		Payload:     signed,
	}, nil
}

func (c *HTTPSigner) GetSignature(ctx context.Context, signatureID string) (KeyInfo, error) {
	signatureID = strings.TrimSpace(signatureID)
	if signatureID == "" {
		return KeyInfo{}, fmt.Errorf("%w: signature id required", ErrRejected)
	}
	var resp signatureInfoBody
	if err := c.doJSON(ctx, http.MethodGet, "/v1/signatures/"+url.PathEscape(signatureID), nil, &resp); err != nil {
		return KeyInfo{}, err
	}
	return KeyInfo{
		CertificateSerial: resp.CertificateSerial,
		Algorithm:         resp.Algorithm,
	}, nil
}

func (c *HTTPSigner) setHeaders(ctx context.Context, req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if req.Body != nil && req.Body != http.NoBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}

// doJSON retries transport failures and 5xx/429 responses only. Client errors
// are returned on the first attempt.
func (c *HTTPSigner) doJSON(ctx context.Context, method string, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}

	ctx2, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error
	backoff := 200 * time.Millisecond
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx2.Err() != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, ctx2.Err())
		}

		var rdr io.Reader = http.NoBody
		if payload != nil {
			rdr = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx2, method, c.baseURL+path, rdr)
		if err != nil {
			return err
		}
		c.setHeaders(ctx2, req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: %v", ErrUnavailable, readErr)
			} else if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				lastErr = parseHTTPError(resp.StatusCode, raw)
				if !Retryable(lastErr) {
					return lastErr
				}
			} else {
				if out == nil {
					return nil
				}
				if err := json.Unmarshal(raw, out); err != nil {
					return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
				}
				return nil
			}
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx2.Done():
				return fmt.Errorf("%w: %v", ErrUnavailable, ctx2.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	if lastErr == nil {
		lastErr = ErrUnavailable
	}
	return lastErr
}
