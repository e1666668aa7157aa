package signing

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func writeErr(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"code": code, "message": msg}})
}

func TestHTTPSignerSign(t *testing.T) {
	userID := uuid.New()
	var gotBody signRequestBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/signatures":
			if r.Header.Get("Authorization") != "Bearer key" {
				writeErr(w, http.StatusForbidden, "forbidden", "bad api key")
				return
			}
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			_ = json.NewEncoder(w).Encode(signResponseBody{SignatureID: "sig-1", Signature: "c2ln", PublicKey: "pem"})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/signatures/sig-1":
			_ = json.NewEncoder(w).Encode(signatureInfoBody{SignatureID: "sig-1", CertificateSerial: "ABC", Algorithm: "Ed25519"})
		default:
			writeErr(w, http.StatusNotFound, CodeKeyNotFound, "not found")
		}
	}))
	defer srv.Close()

	c, err := NewHTTPSigner(HTTPOptions{BaseURL: srv.URL + "/", APIKey: "key", Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewHTTPSigner: %v", err)
	}
	res, err := c.Sign(context.Background(), SignRequest{UserID: userID, PIN: "1234", Payload: []byte("hello"), IdempotencyKey: "k"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if res.SignatureID != "sig-1" || res.Signature != "c2ln" || res.PublicKey != "pem" || string(res.Payload) != "hello" {
		t.Fatalf("Sign: unexpected result %+v", res)
	}
	if gotBody.UserID != userID.String() || gotBody.IdempotencyKey != "k" {
		t.Fatalf("Sign: unexpected request body %+v", gotBody)
	}
	if decoded, _ := base64.StdEncoding.DecodeString(gotBody.Payload); string(decoded) != "hello" {
		t.Fatalf("Sign: payload not base64 of input: %q", gotBody.Payload)
	}

	info, err := c.GetSignature(context.Background(), "sig-1")
	if err != nil {
		t.Fatalf("GetSignature: %v", err)
	}
	if info.CertificateSerial != "ABC" || info.Algorithm != "Ed25519" {
		t.Fatalf("GetSignature: unexpected %+v", info)
	}
}

func TestHTTPSignerReplayReturnsOriginalPayload(t *testing.T) {
	original := []byte(`{"timestamp":"2024-02-01T10:00:00Z"}`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(signResponseBody{
			SignatureID: "sig-1",
			Signature:   "c2ln",
			PublicKey:   "pem",
			Payload:     base64.StdEncoding.EncodeToString(original),
		})
	}))
	defer srv.Close()

	c, err := NewHTTPSigner(HTTPOptions{BaseURL: srv.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewHTTPSigner: %v", err)
	}
	res, err := c.Sign(context.Background(), SignRequest{UserID: uuid.New(), PIN: "1234", Payload: []byte("newer"), IdempotencyKey: "k"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if string(res.Payload) != string(original) {
		t.Fatalf("Sign: want=%s got=%s", original, res.Payload)
	}
}

func TestHTTPSignerErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		code   string
		want   error
		calls  int32
	}{
		{"invalid pin by code", http.StatusBadRequest, CodeInvalidPIN, ErrInvalidPIN, 1},
		{"invalid pin by status", http.StatusUnauthorized, "", ErrInvalidPIN, 1},
		{"key not found", http.StatusNotFound, "", ErrKeyNotFound, 1},
		{"rejected", http.StatusUnprocessableEntity, "bad_payload", ErrRejected, 1},
		{"unavailable retried", http.StatusBadGateway, "", ErrUnavailable, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				// Messages must not drive classification.
				writeErr(w, tc.status, tc.code, "Invalid PIN or not found")
			}))
			defer srv.Close()

			c, err := NewHTTPSigner(HTTPOptions{BaseURL: srv.URL, MaxRetries: 2, Timeout: 5 * time.Second})
			if err != nil {
				t.Fatalf("NewHTTPSigner: %v", err)
			}
			_, err = c.Sign(context.Background(), SignRequest{UserID: uuid.New(), PIN: "1", Payload: []byte("x")})
			if !errors.Is(err, tc.want) {
				t.Fatalf("Sign: want=%v got=%v", tc.want, err)
			}
			var herr *HTTPError
			if !errors.As(err, &herr) || herr.StatusCode != tc.status {
				t.Fatalf("Sign: expected HTTPError with status %d, got %v", tc.status, err)
			}
			if got := atomic.LoadInt32(&calls); got != tc.calls {
				t.Fatalf("calls: want=%d got=%d", tc.calls, got)
			}
		})
	}
}

func TestHTTPSignerTimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := NewHTTPSigner(HTTPOptions{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewHTTPSigner: %v", err)
	}
	_, err = c.Sign(context.Background(), SignRequest{UserID: uuid.New(), PIN: "1", Payload: []byte("x")})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Sign: want ErrUnavailable got=%v", err)
	}
}

func TestNewHTTPSignerRequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPSigner(HTTPOptions{BaseURL: "  "}); err == nil || !strings.Contains(err.Error(), "baseURL") {
		t.Fatalf("NewHTTPSigner: expected baseURL error, got %v", err)
	}
}
