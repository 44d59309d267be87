package remote_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/probelab/headnotes/internal/domain/project"
	"github.com/probelab/headnotes/internal/remote"
	"github.com/probelab/headnotes/internal/repository"
	"github.com/probelab/headnotes/internal/sqlite"
	"github.com/probelab/headnotes/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEndpoint(t *testing.T, secret string) *httptest.Server {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	server := httptest.NewServer(transport.NewServer(sqlite.NewDocumentStore(db), transport.Options{
		Secret: secret,
	}))
	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})
	return server
}

func TestStore_GetAbsentMapsToNotFound(t *testing.T) {
	server := newEndpoint(t, "")
	store := remote.New(server.URL, "")

	_, err := store.Get(context.Background())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	server := newEndpoint(t, "topsecret")
	store := remote.New(server.URL, "topsecret")

	doc := project.New("gpt2-small", 12, 12, time.Now())
	doc = project.Reduce(doc, project.AddTag{Tag: "induction"}, time.Now())

	stored, err := store.Put(ctx, doc, "")
	require.NoError(t, err)
	require.NotEmpty(t, stored.UpdatedAt)

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored.UpdatedAt, got.UpdatedAt)
	assert.Equal(t, []string{"induction"}, got.Tags)
}

func TestStore_ConflictCarriesCurrentVersion(t *testing.T) {
	ctx := context.Background()
	server := newEndpoint(t, "")
	store := remote.New(server.URL, "")

	doc := project.New("m", 2, 2, time.Now())
	v1, err := store.Put(ctx, doc, "")
	require.NoError(t, err)
	v2, err := store.Put(ctx, v1, v1.UpdatedAt)
	require.NoError(t, err)

	_, err = store.Put(ctx, v1, v1.UpdatedAt)
	current, ok := repository.IsConflict(err)
	require.True(t, ok, "expected conflict, got %v", err)
	assert.Equal(t, v2.UpdatedAt, current)
}

func TestStore_PreconditionRequired(t *testing.T) {
	ctx := context.Background()
	server := newEndpoint(t, "")
	store := remote.New(server.URL, "")

	doc := project.New("m", 2, 2, time.Now())
	_, err := store.Put(ctx, doc, "")
	require.NoError(t, err)

	_, err = store.Put(ctx, doc, "")
	assert.ErrorIs(t, err, repository.ErrPreconditionRequired)
}

func TestStore_UnreachableEndpointIsUnavailable(t *testing.T) {
	store := remote.New("http://127.0.0.1:1", "")
	_, err := store.Get(context.Background())
	assert.ErrorIs(t, err, repository.ErrUnavailable)
}
