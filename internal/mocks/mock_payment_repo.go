package mocks

import (
	"context"

	"github.com/metinatakli/payment-gateway/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPaymentRepo struct {
	mock.Mock
	domain.PaymentRepository
}

func (m *MockPaymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepo) GetById(ctx context.Context, id string) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	payment, _ := args.Get(0).(*domain.Payment)
	return payment, args.Error(1)
}

func (m *MockPaymentRepo) GetByProviderId(
	ctx context.Context,
	provider domain.Provider,
	providerID string) (*domain.Payment, error) {

	args := m.Called(ctx, provider, providerID)
	payment, _ := args.Get(0).(*domain.Payment)
	return payment, args.Error(1)
}

func (m *MockPaymentRepo) Update(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepo) GetAll(
	ctx context.Context,
	filters domain.PaymentFilters) ([]*domain.Payment, *domain.PageMetadata, error) {

	args := m.Called(ctx, filters)
	payments, _ := args.Get(0).([]*domain.Payment)
	metadata, _ := args.Get(1).(*domain.PageMetadata)
	return payments, metadata, args.Error(2)
}
