package mocks

import (
	"context"

	"timecapsule/internal/model"
	"timecapsule/internal/service"
	"timecapsule/internal/upload"

	"github.com/stretchr/testify/mock"
)

type MockCapsuleService struct {
	mock.Mock
}

func (m *MockCapsuleService) Create(ctx context.Context, in service.CreateCapsuleInput) (*model.Capsule, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Capsule), args.Error(1)
}

func (m *MockCapsuleService) List(ctx context.Context, limit, offset int) (*service.CapsuleListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CapsuleListResult), args.Error(1)
}

func (m *MockCapsuleService) Get(ctx context.Context, id string) (*model.Capsule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Capsule), args.Error(1)
}

func (m *MockCapsuleService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCapsuleService) Attach(ctx context.Context, capsuleID string, file *model.LocalFile) (*upload.Transfer, error) {
	args := m.Called(ctx, capsuleID, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*upload.Transfer), args.Error(1)
}

func (m *MockCapsuleService) ListAttachments(ctx context.Context, capsuleID string, n int) ([]model.UploadRecord, error) {
	args := m.Called(ctx, capsuleID, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UploadRecord), args.Error(1)
}

func (m *MockCapsuleService) DeleteAttachment(ctx context.Context, capsuleID, key string) error {
	args := m.Called(ctx, capsuleID, key)
	return args.Error(0)
}
