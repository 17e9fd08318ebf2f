package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/agentarena/realtime-backend/internal/core/domain"
	"github.com/agentarena/realtime-backend/internal/core/ports"
)

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Emit(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockChatRepository is a mock implementation of ports.ChatRepository
type MockChatRepository struct {
	mock.Mock
}

func NewMockChatRepository() *MockChatRepository {
	return &MockChatRepository{}
}

func (m *MockChatRepository) Create(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatMessage), args.Error(1)
}

func (m *MockChatRepository) ListRecentByMatch(ctx context.Context, matchID int64, limit int) ([]*domain.ChatMessage, error) {
	args := m.Called(ctx, matchID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChatMessage), args.Error(1)
}

// MockChatService is a mock implementation of ports.ChatService
type MockChatService struct {
	mock.Mock
}

func NewMockChatService() *MockChatService {
	return &MockChatService{}
}

func (m *MockChatService) SendMessage(ctx context.Context, params ports.SendChatParams) (*domain.ChatMessage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatMessage), args.Error(1)
}

func (m *MockChatService) RecentMessages(ctx context.Context, matchID int64, limit int) ([]*domain.ChatMessage, error) {
	args := m.Called(ctx, matchID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChatMessage), args.Error(1)
}

// MockEventService is a mock implementation of ports.EventService
type MockEventService struct {
	mock.Mock
}

func NewMockEventService() *MockEventService {
	return &MockEventService{}
}

func (m *MockEventService) Ingest(ctx context.Context, t domain.EventType, raw []byte) (domain.Event, error) {
	args := m.Called(ctx, t, raw)
	return args.Get(0).(domain.Event), args.Error(1)
}
