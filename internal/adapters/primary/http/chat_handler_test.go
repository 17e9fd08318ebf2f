package http

import (
	"encoding/json"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agentarena/realtime-backend/internal/core/domain"
	"github.com/agentarena/realtime-backend/internal/core/mocks"
)

func newChatRouter(svc *mocks.MockChatService) *chi.Mux {
	handler := NewChatHandler(svc, slog.New(slog.DiscardHandler))
	r := chi.NewRouter()
	r.Get("/matches/{matchID}/chat", handler.RecentMessages)
	return r
}

func TestChatHandler_RecentMessages(t *testing.T) {
	t.Run("returns messages", func(t *testing.T) {
		svc := mocks.NewMockChatService()
		router := newChatRouter(svc)

		messages := []*domain.ChatMessage{
			{ID: uuid.New(), MatchID: 7, Sender: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", Body: "gl", CreatedAt: time.Now().UTC()},
			{ID: uuid.New(), MatchID: 7, Sender: "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359", Body: "hf", CreatedAt: time.Now().UTC()},
		}
		svc.On("RecentMessages", mock.Anything, int64(7), 0).Return(messages, nil)

		req := httptest.NewRequest(stdhttp.MethodGet, "/matches/7/chat", nil)
		recorder := httptest.NewRecorder()

		router.ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusOK, recorder.Code)

		var response struct {
			Data  []json.RawMessage `json:"data"`
			Count int               `json:"count"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.Equal(t, 2, response.Count)
		assert.Len(t, response.Data, 2)

		svc.AssertExpectations(t)
	})

	t.Run("passes limit through", func(t *testing.T) {
		svc := mocks.NewMockChatService()
		router := newChatRouter(svc)

		svc.On("RecentMessages", mock.Anything, int64(7), 10).Return([]*domain.ChatMessage{}, nil)

		req := httptest.NewRequest(stdhttp.MethodGet, "/matches/7/chat?limit=10", nil)
		recorder := httptest.NewRecorder()

		router.ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusOK, recorder.Code)
		svc.AssertExpectations(t)
	})

	t.Run("invalid match id", func(t *testing.T) {
		svc := mocks.NewMockChatService()
		router := newChatRouter(svc)

		req := httptest.NewRequest(stdhttp.MethodGet, "/matches/banana/chat", nil)
		recorder := httptest.NewRecorder()

		router.ServeHTTP(recorder, req)

		assert.Equal(t, stdhttp.StatusBadRequest, recorder.Code)
		svc.AssertNotCalled(t, "RecentMessages", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid limit", func(t *testing.T) {
		svc := mocks.NewMockChatService()
		router := newChatRouter(svc)

		req := httptest.NewRequest(stdhttp.MethodGet, "/matches/7/chat?limit=-5", nil)
		recorder := httptest.NewRecorder()

		router.ServeHTTP(recorder, req)

		assert.Equal(t, stdhttp.StatusBadRequest, recorder.Code)
	})
}
