package mocks

import (
	"context"

	"timecapsule/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) List(ctx context.Context, capsuleID string, limit int) ([]model.UploadRecord, error) {
	args := m.Called(ctx, capsuleID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UploadRecord), args.Error(1)
}

func (m *MockRecordStore) Get(ctx context.Context, capsuleID, key string) (*model.UploadRecord, error) {
	args := m.Called(ctx, capsuleID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadRecord), args.Error(1)
}

func (m *MockRecordStore) Append(ctx context.Context, rec *model.UploadRecord) (*model.UploadRecord, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadRecord), args.Error(1)
}

func (m *MockRecordStore) Remove(ctx context.Context, capsuleID, key string) error {
	args := m.Called(ctx, capsuleID, key)
	return args.Error(0)
}
