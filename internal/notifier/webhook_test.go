package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookTransport_SignsAndPosts(t *testing.T) {
	var got Message
	var signature, messageID string
	var verified bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		signature = r.Header.Get(SignatureHeader)
		messageID = r.Header.Get(MessageIDHeader)
		verified = VerifySignature("s3cret", body, signature)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	tr := NewWebhookTransport(srv.URL, "s3cret", time.Second)
	msg := Message{From: "a@example.com", To: "b@example.com", Subject: "hi", Body: "there"}

	err := tr.Send(context.Background(), msg)

	require.NoError(t, err)
	assert.Equal(t, msg, got)
	assert.NotEmpty(t, signature)
	assert.NotEmpty(t, messageID)
	assert.True(t, verified)
}

func TestWebhookTransport_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookTransport(srv.URL, "", time.Second).Send(context.Background(), Message{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookTransport_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewWebhookTransport(url, "", time.Second).Send(context.Background(), Message{})

	assert.Error(t, err)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"subject":"x"}`)
	sig := computeSignature("key", body)

	assert.True(t, VerifySignature("key", body, sig))
	assert.False(t, VerifySignature("other", body, sig))
	assert.False(t, VerifySignature("key", []byte(`{}`), sig))
}

func TestNewSMTPTransport(t *testing.T) {
	_, err := NewSMTPTransport(SMTPConfig{})
	assert.Error(t, err, "host is required")

	_, err = NewSMTPTransport(SMTPConfig{Host: "localhost", TLSPolicy: "sometimes"})
	assert.Error(t, err)

	tr, err := NewSMTPTransport(SMTPConfig{Host: "localhost", Port: 2525, TLSPolicy: "none", Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "localhost", tr.host)
}

func TestLogTransport(t *testing.T) {
	assert.NoError(t, NewLogTransport(nil).Send(context.Background(), Message{Subject: "s"}))
}
