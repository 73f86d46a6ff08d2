package mocks

import (
	"context"

	"simulation-server/internal/messaging"

	"github.com/stretchr/testify/mock"
)

// Mock EmailTaskPublisher
type EmailTaskPublisher struct {
	mock.Mock
}

func (m *EmailTaskPublisher) PublishEmailTask(ctx context.Context, task messaging.EmailTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

// Mock EmailTaskHandler
type EmailTaskHandler struct {
	mock.Mock
}

func (m *EmailTaskHandler) HandleEmailTask(ctx context.Context, task messaging.EmailTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}
