package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wolfman30/clinic-admin/pkg/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *EvolutionClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewEvolutionClient(EvolutionConfig{
		BaseURL:  ts.URL + "/",
		APIKey:   "evo-key",
		Instance: "clinica",
	}, logging.Default())
}

func TestSendText_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/message/sendText/clinica" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("apikey"); got != "evo-key" {
			t.Fatalf("apikey = %q", got)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["number"] != "5511988887777" {
			t.Fatalf("number = %q, want digits only", body["number"])
		}
		if body["text"] != "Olá!" {
			t.Fatalf("text = %q", body["text"])
		}
		w.WriteHeader(http.StatusCreated)
	})

	if err := client.SendText(context.Background(), "+55 (11) 98888-7777", "Olá!"); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
}

func TestSendText_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "instance disconnected", http.StatusBadRequest)
	})

	err := client.SendText(context.Background(), "5511988887777", "oi")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestSendText_NotConfigured(t *testing.T) {
	client := NewEvolutionClient(EvolutionConfig{BaseURL: "http://evo"}, nil)
	err := client.SendText(context.Background(), "5511988887777", "oi")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
