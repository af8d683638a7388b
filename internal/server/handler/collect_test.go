package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
)

type stubRunner struct {
	res  domain.PassResult
	err  error
	opts domain.CollectOptions
}

func (s *stubRunner) Run(ctx context.Context, structureID int64, opts domain.CollectOptions) (domain.PassResult, error) {
	s.opts = opts
	return s.res, s.err
}

func newCollectMux(runner PassRunner) *http.ServeMux {
	h := NewCollectHandler(runner, slog.Default())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/structures/{id}/collect", h.TriggerCollect)
	return mux
}

func doCollect(mux *http.ServeMux, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestTriggerCollectSuccess(t *testing.T) {
	runner := &stubRunner{res: domain.PassResult{
		StructureID:       1001,
		ObservedAt:        time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
		OrderCount:        42,
		AggregateKeyCount: 3,
	}}
	rec := doCollect(newCollectMux(runner), "/api/structures/1001/collect", `{"force_refresh":true}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if !runner.opts.ForceRefresh {
		t.Error("force_refresh not propagated")
	}

	var res domain.PassResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.OrderCount != 42 || res.AggregateKeyCount != 3 {
		t.Errorf("response = %+v", res)
	}
}

func TestTriggerCollectStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"pass in progress", domain.ErrPassInProgress, http.StatusConflict},
		{"missing credential", domain.ErrMissingCredential, http.StatusBadRequest},
		{"missing scope", domain.ErrMissingScope, http.StatusBadRequest},
		{"upstream failure", domain.ErrUpstream, http.StatusBadGateway},
		{"anything else", errors.New("tx deadlock"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doCollect(newCollectMux(&stubRunner{err: tt.err}), "/api/structures/1001/collect", "")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestTriggerCollectInvalidID(t *testing.T) {
	rec := doCollect(newCollectMux(&stubRunner{}), "/api/structures/zero/collect", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
