package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBrevoClient_SendOTP(t *testing.T) {
	var (
		gotPath   string
		gotAPIKey string
		gotBody   brevoEmail
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewBrevoClient("test-key", srv.URL, "Lapra-Tech", "no-reply@lapratech.com", 10*time.Minute)
	if err := c.SendOTP(context.Background(), "alice@x.com", "Alice", "123456"); err != nil {
		t.Fatalf("SendOTP: %v", err)
	}

	if gotPath != "/v3/smtp/email" {
		t.Errorf("path = %q, want /v3/smtp/email", gotPath)
	}
	if gotAPIKey != "test-key" {
		t.Errorf("api-key = %q, want test-key", gotAPIKey)
	}
	if gotBody.Subject != "Your OTP for Lapra-Tech" {
		t.Errorf("subject = %q", gotBody.Subject)
	}
	if len(gotBody.To) != 1 || gotBody.To[0].Email != "alice@x.com" {
		t.Errorf("to = %+v, want alice@x.com", gotBody.To)
	}
	if gotBody.Sender.Email != "no-reply@lapratech.com" {
		t.Errorf("sender = %+v", gotBody.Sender)
	}
	if !strings.Contains(gotBody.HTMLContent, "123456") {
		t.Error("html content should contain the OTP")
	}
	if !strings.Contains(gotBody.HTMLContent, "Alice") {
		t.Error("html content should greet the user by name")
	}
	if !strings.Contains(gotBody.HTMLContent, "10 minutes") {
		t.Error("html content should state the validity window")
	}
}

func TestBrevoClient_SendOTP_ProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewBrevoClient("bad-key", srv.URL, "Lapra-Tech", "no-reply@lapratech.com", 10*time.Minute)
	err := c.SendOTP(context.Background(), "alice@x.com", "Alice", "123456")
	if err == nil {
		t.Fatal("SendOTP should fail on non-2xx status")
	}
	if !strings.Contains(err.Error(), "status=401") {
		t.Errorf("error = %v, should carry the status code", err)
	}
}

func TestBrevoClient_SendOTP_NoAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be made without an API key")
	}))
	defer srv.Close()

	c := NewBrevoClient("", srv.URL, "Lapra-Tech", "no-reply@lapratech.com", 10*time.Minute)
	if err := c.SendOTP(context.Background(), "alice@x.com", "Alice", "123456"); err == nil {
		t.Fatal("SendOTP should fail when API key is not configured")
	}
}

type chanSender struct {
	calls chan string
	err   error
}

func (s *chanSender) SendOTP(ctx context.Context, email, name, code string) error {
	s.calls <- email
	return s.err
}

func TestDispatcher_SendOTPAsync(t *testing.T) {
	sender := &chanSender{calls: make(chan string, 1)}
	d := NewDispatcher(sender)

	d.SendOTPAsync("alice@x.com", "Alice", "123456")
	select {
	case email := <-sender.calls:
		if email != "alice@x.com" {
			t.Errorf("sent to %q, want alice@x.com", email)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("async send never happened")
	}
}

func TestDispatcher_SendOTPAsync_FailureAbsorbed(t *testing.T) {
	sender := &chanSender{calls: make(chan string, 1), err: errors.New("provider down")}
	d := NewDispatcher(sender)

	// Must not panic or propagate; the workflow already succeeded.
	d.SendOTPAsync("alice@x.com", "Alice", "123456")
	select {
	case <-sender.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("async send never attempted")
	}
}

func TestDispatcher_NilSender(t *testing.T) {
	d := NewDispatcher(nil)
	d.SendOTPAsync("alice@x.com", "Alice", "123456") // no-op, must not panic
}
