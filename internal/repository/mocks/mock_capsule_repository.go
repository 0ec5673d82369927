package mocks

import (
	"context"

	"timecapsule/internal/model"
	"timecapsule/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockCapsuleRepository struct {
	mock.Mock
}

func (m *MockCapsuleRepository) Create(ctx context.Context, c *model.Capsule) (*model.Capsule, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Capsule), args.Error(1)
}

func (m *MockCapsuleRepository) FindByID(ctx context.Context, id string) (*model.Capsule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Capsule), args.Error(1)
}

func (m *MockCapsuleRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Capsule], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Capsule]), args.Error(1)
}

func (m *MockCapsuleRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
