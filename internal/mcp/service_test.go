package mcp_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/probelab/headnotes/internal/domain/project"
	"github.com/probelab/headnotes/internal/filestore"
	"github.com/probelab/headnotes/internal/mcp"
	"github.com/probelab/headnotes/internal/repository"
	"github.com/probelab/headnotes/internal/repository/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testDefaults = mcp.Defaults{ModelName: "gpt2-small", NumLayers: 12, NumHeads: 12}

func TestService_DocumentEmptyStore(t *testing.T) {
	store := filestore.New(filepath.Join(t.TempDir(), "doc.json"))
	svc := mcp.NewService(store, testDefaults, nil)

	doc, err := svc.Document(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gpt2-small", doc.ModelName)
	assert.Empty(t, doc.Annotations)
}

func TestService_ApplySeedsEmptyStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "doc.json")
	svc := mcp.NewService(filestore.New(path), testDefaults, nil)

	doc, err := svc.Apply(ctx, project.UpsertAnnotation{Annotation: project.Annotation{
		Layer: 2, Head: 5, Tags: []string{"Reasoning / Causal"},
	}})
	require.NoError(t, err)
	require.Contains(t, doc.Annotations, "L2H5")
	assert.Equal(t, []string{"reasoning/causal"}, doc.Annotations["L2H5"].Tags)

	stored, err := filestore.New(path).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc.UpdatedAt, stored.UpdatedAt)
}

func TestService_ApplyRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	v1 := project.New("m", 2, 2, time.Now().Add(-time.Minute))
	v2 := project.Reduce(project.New("m", 2, 2, time.Now()), project.AddTag{Tag: "other"}, time.Now())
	final := project.Reduce(v2, project.AddTag{Tag: "induction"}, time.Now())

	store := new(mocks.DocumentStore)
	store.On("Get", mock.Anything).Return(v1, nil).Once()
	store.On("Put", mock.Anything, mock.Anything, v1.UpdatedAt).
		Return(nil, &repository.ConflictError{CurrentUpdatedAt: v2.UpdatedAt}).Once()
	store.On("Get", mock.Anything).Return(v2, nil).Once()
	store.On("Put", mock.Anything, mock.Anything, v2.UpdatedAt).Return(final, nil).Once()

	svc := mcp.NewService(store, testDefaults, nil)
	doc, err := svc.Apply(ctx, project.AddTag{Tag: "induction"})
	require.NoError(t, err)
	assert.Contains(t, doc.Tags, "other", "retry rebased onto the fresh document")
	assert.Contains(t, doc.Tags, "induction")
	store.AssertExpectations(t)
}

func TestService_ApplyNoOpSkipsWrite(t *testing.T) {
	ctx := context.Background()
	doc := project.Reduce(project.New("m", 2, 2, time.Now()), project.AddTag{Tag: "induction"}, time.Now())

	store := new(mocks.DocumentStore)
	store.On("Get", mock.Anything).Return(doc, nil).Once()

	svc := mcp.NewService(store, testDefaults, nil)
	got, err := svc.Apply(ctx, project.AddTag{Tag: "induction"})
	require.NoError(t, err)
	assert.Equal(t, doc.UpdatedAt, got.UpdatedAt)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ApplyGivesUpAfterRepeatedConflicts(t *testing.T) {
	doc := project.New("m", 2, 2, time.Now())
	store := new(mocks.DocumentStore)
	store.On("Get", mock.Anything).Return(doc, nil)
	store.On("Put", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &repository.ConflictError{CurrentUpdatedAt: "later"})

	svc := mcp.NewService(store, testDefaults, nil)
	_, err := svc.Apply(context.Background(), project.AddTag{Tag: "induction"})
	assert.ErrorIs(t, err, mcp.ErrTooManyConflicts)
}

func TestMapError(t *testing.T) {
	conflictErr := mcp.MapError(&repository.ConflictError{CurrentUpdatedAt: "x"})
	require.NotNil(t, conflictErr)
	assert.Equal(t, "CONFLICT", conflictErr.Code)

	unavailable := mcp.MapError(repository.ErrUnavailable)
	require.NotNil(t, unavailable)
	assert.Equal(t, "UNAVAILABLE", unavailable.Code)

	assert.Nil(t, mcp.MapError(nil))
}
