// Package testserver spins up a fully wired document endpoint backed by an
// in-memory SQLite database, for integration tests.
package testserver

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/probelab/headnotes/internal/remote"
	"github.com/probelab/headnotes/internal/sqlite"
	"github.com/probelab/headnotes/internal/transport"
	"github.com/stretchr/testify/require"
)

type TestServer struct {
	Server *httptest.Server
	Store  *sqlite.DocumentStore
	DB     *sqlite.DB
	Secret string
}

func New(t *testing.T, secret string, opts transport.Options) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	store := sqlite.NewDocumentStore(db)
	opts.Secret = secret
	if opts.History == nil {
		opts.History = store
	}
	server := httptest.NewServer(transport.NewServer(store, opts))

	ts := &TestServer{
		Server: server,
		Store:  store,
		DB:     db,
		Secret: secret,
	}

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

// Client returns a remote store pointed at this server.
func (ts *TestServer) Client() *remote.Store {
	return remote.New(ts.Server.URL, ts.Secret)
}
