package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rickgao/marketdash/internal/api"
)

func TestRun_ArgumentErrors(t *testing.T) {
	c := api.NewClient("http://127.0.0.1:1", "", api.WithRetries(0, 0))

	for _, cmd := range []string{"symbol", "add", "remove", "select", "timeframe", "submit"} {
		if _, err := run(context.Background(), c, cmd, nil); !errors.Is(err, errUsage) {
			t.Errorf("%s without args: err = %v, want errUsage", cmd, err)
		}
	}
	if _, err := run(context.Background(), c, "explode", nil); err == nil {
		t.Error("unknown command accepted")
	}
}

func TestRun_Requests(t *testing.T) {
	type seen struct {
		method, path, body string
	}
	var (
		mu  sync.Mutex
		got []seen
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		raw, _ := json.Marshal(body)
		mu.Lock()
		got = append(got, seen{r.Method, r.URL.Path, string(raw)})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := api.NewClient(server.URL, "", api.WithRetries(0, 0))
	tests := []struct {
		cmd  string
		args []string
		want seen
	}{
		{"status", nil, seen{http.MethodGet, "/status", "null"}},
		{"add", []string{"nvda"}, seen{http.MethodPost, "/symbols", `{"symbol":"nvda"}`}},
		{"select", []string{"AAPL"}, seen{http.MethodPut, "/selected", `{"symbol":"AAPL"}`}},
		{"reconnect", nil, seen{http.MethodPost, "/connection/reconnect", "null"}},
		{"submit", []string{"hello", "there"}, seen{http.MethodPost, "/submit", `{"text":"hello there"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			mu.Lock()
			got = nil
			mu.Unlock()
			if _, err := run(context.Background(), c, tt.cmd, tt.args); err != nil {
				t.Fatalf("run: %v", err)
			}
			mu.Lock()
			defer mu.Unlock()
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("requests = %+v, want %+v", got, tt.want)
			}
		})
	}
}
