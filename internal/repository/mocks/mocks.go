package mocks

import (
	"context"

	"github.com/probelab/headnotes/internal/domain/project"
	"github.com/stretchr/testify/mock"
)

// DocumentStore is a mock for repository.DocumentStore.
type DocumentStore struct {
	mock.Mock
}

func (m *DocumentStore) Get(ctx context.Context) (*project.Project, error) {
	args := m.Called(ctx)
	if doc, ok := args.Get(0).(*project.Project); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DocumentStore) Put(ctx context.Context, doc *project.Project, expectedVersion string) (*project.Project, error) {
	args := m.Called(ctx, doc, expectedVersion)
	if stored, ok := args.Get(0).(*project.Project); ok {
		return stored, args.Error(1)
	}
	return nil, args.Error(1)
}

// LocalCache is a mock for repository.LocalCache.
type LocalCache struct {
	mock.Mock
}

func (m *LocalCache) Load(ctx context.Context) (*project.Project, error) {
	args := m.Called(ctx)
	if doc, ok := args.Get(0).(*project.Project); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LocalCache) Save(ctx context.Context, doc *project.Project) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}
