package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ArowuTest/raffle-backend/pkg/jwt"
)

func TestMockGatewaySend(t *testing.T) {
	g := NewMockGateway(GatewayMock)
	id, err := g.Send(context.Background(), Message{Recipient: "ada@example.com", Subject: "hi"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if g.Name() != GatewayMock || !strings.HasPrefix(id, GatewayMock+"-MOCK-MSG-") {
		t.Fatalf("unexpected name %q or id %q", g.Name(), id)
	}
}

func TestWebhookGatewaySend(t *testing.T) {
	verifier := jwt.NewTokenService("hook-secret", time.Minute, "raffle-backend")
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			t.Errorf("missing bearer token, got %q", auth)
		} else if _, err := verifier.Parse(strings.TrimPrefix(auth, "Bearer ")); err != nil {
			t.Errorf("token did not verify: %v", err)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"messageId":"hook-1"}`))
	}))
	defer srv.Close()

	g := NewWebhookGateway(srv.URL, "hook-secret")
	id, err := g.Send(context.Background(), Message{Recipient: "ada@example.com", Subject: "Order ABCD1234", Body: "Your tickets are confirmed"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != "hook-1" {
		t.Fatalf("expected message id hook-1, got %q", id)
	}
	if got["recipient"] != "ada@example.com" || got["subject"] != "Order ABCD1234" {
		t.Fatalf("unexpected payload %v", got)
	}
}

func TestWebhookGatewayFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "relay down", http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewWebhookGateway(srv.URL, "hook-secret").Send(context.Background(), Message{Recipient: "x@example.com"}); err == nil {
		t.Fatal("expected an error for a 502")
	}
}
