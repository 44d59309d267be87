package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/probelab/headnotes/internal/domain/project"
	"github.com/probelab/headnotes/internal/filestore"
	"github.com/probelab/headnotes/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *filestore.Store {
	t.Helper()
	return filestore.New(filepath.Join(t.TempDir(), "document.json"))
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	doc := project.New("gpt2-small", 12, 12, time.Now())
	doc = project.Reduce(doc, project.UpsertAnnotation{Annotation: project.Annotation{
		Layer: 2, Head: 5, Tags: []string{"reasoning/causal"},
	}}, time.Now())

	stored, err := store.Put(ctx, doc, "")
	require.NoError(t, err)

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored.UpdatedAt, got.UpdatedAt)
	assert.Contains(t, got.Annotations, "L2H5")
}

func TestStore_CASSemantics(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	doc := project.New("m", 2, 2, time.Now())

	v1, err := store.Put(ctx, doc, "")
	require.NoError(t, err)

	v2, err := store.Put(ctx, project.Reduce(v1, project.AddTag{Tag: "a"}, time.Now()), v1.UpdatedAt)
	require.NoError(t, err)

	_, err = store.Put(ctx, project.Reduce(v1, project.AddTag{Tag: "b"}, time.Now()), v1.UpdatedAt)
	current, ok := repository.IsConflict(err)
	require.True(t, ok)
	assert.Equal(t, v2.UpdatedAt, current)

	_, err = store.Put(ctx, doc, "")
	assert.ErrorIs(t, err, repository.ErrPreconditionRequired)
}

func TestStore_CorruptFileSurfacesReadFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "document.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := filestore.New(path)
	_, err := store.Get(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrNotFound,
		"invalid stored data is a read failure, not an absent document")
}
