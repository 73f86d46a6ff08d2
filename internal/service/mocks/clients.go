package mocks

import (
	"context"

	"simulation-server/internal/email"
	"simulation-server/internal/payment/paystack"

	"github.com/stretchr/testify/mock"
)

// Mock PaymentGateway
type PaymentGateway struct {
	mock.Mock
}

func (m *PaymentGateway) InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*paystack.InitializeResult)
	return res, args.Error(1)
}

func (m *PaymentGateway) VerifyTransaction(ctx context.Context, reference string) (*paystack.TransactionData, error) {
	args := m.Called(ctx, reference)
	data, _ := args.Get(0).(*paystack.TransactionData)
	return data, args.Error(1)
}

// Mock email.Sender
type EmailSender struct {
	mock.Mock
}

func (m *EmailSender) Send(ctx context.Context, msg email.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
