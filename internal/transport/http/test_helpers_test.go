package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/sharkord-go/internal/store"
	"github.com/vovakirdan/sharkord-go/internal/store/sqlite"
)

type staticStatus StatusResponse

func (s staticStatus) Status() StatusResponse { return StatusResponse(s) }

// createTestStore creates an in-memory archive seeded with messages 1..5 in channel 1.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.ApplySchema)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for id := int64(1); id <= 5; id++ {
		msg := &store.Message{ID: id, ChannelID: 1, UserID: 9, AuthorName: "member", Content: "msg", CreatedAt: created}
		if err := st.SaveMessage(context.Background(), msg); err != nil {
			t.Fatalf("seed message %d: %v", id, err)
		}
	}
	return st
}

func serve(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func disabledLogger() *zerolog.Logger {
	l := zerolog.New(nil)
	return &l
}
