// Package sync reconciles the device-local copy of the annotation document
// against the shared remote store using optimistic concurrency on the
// document's updatedAt token.
package sync

import (
	"context"
	"errors"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/probelab/headnotes/internal/domain/project"
	"github.com/probelab/headnotes/internal/repository"
)

// Config holds the engine's timing knobs and the defaults used when neither
// a local nor a remote copy exists. The exact durations are operational
// choices; only their relative ordering matters (the remote debounce should
// not race far ahead of the local one).
type Config struct {
	ModelName string
	NumLayers int
	NumHeads  int

	LocalSaveDebounce  time.Duration
	RemoteSaveDebounce time.Duration
	PollInterval       time.Duration
}

func (c Config) withDefaults() Config {
	if c.ModelName == "" {
		c.ModelName = "gpt2-small"
	}
	if c.NumLayers <= 0 {
		c.NumLayers = 12
	}
	if c.NumHeads <= 0 {
		c.NumHeads = 12
	}
	if c.LocalSaveDebounce <= 0 {
		c.LocalSaveDebounce = 300 * time.Millisecond
	}
	if c.RemoteSaveDebounce <= 0 {
		c.RemoteSaveDebounce = time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	return c
}

// Engine owns the in-memory document and drives all synchronization. The
// document is only ever replaced wholesale, never mutated in place, so
// Snapshot readers always see a complete, consistent version.
type Engine struct {
	cfg     Config
	local   repository.LocalCache
	remote  repository.DocumentStore
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	mu             stdsync.RWMutex
	doc            *project.Project
	lastSeenRemote string
	applyingRemote bool
	bootstrapped   bool
	subscribers    []func(*project.Project)

	actions chan project.Action
	pokes   chan struct{}

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce stdsync.Once
}

// NewEngine creates a sync engine. Start must be called before Dispatch.
func NewEngine(cfg Config, local repository.LocalCache, remote repository.DocumentStore, logger *slog.Logger) *Engine {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now
	return &Engine{
		cfg:     cfg,
		local:   local,
		remote:  remote,
		logger:  logger,
		now:     now,
		doc:     project.New(cfg.ModelName, cfg.NumLayers, cfg.NumHeads, now()),
		actions: make(chan project.Action, 16),
		pokes:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// WithMetrics attaches Prometheus counters. Must be called before Start.
func (e *Engine) WithMetrics(m *Metrics) *Engine {
	e.metrics = m
	return e
}

// WithClock overrides the mutation clock. Tests only.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Snapshot returns a deep copy of the current document.
func (e *Engine) Snapshot() *project.Project {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc.Clone()
}

// LastSeenRemote returns the most recent remote version token obtained from
// or acknowledged by the remote store. Empty until bootstrap learns one.
func (e *Engine) LastSeenRemote() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSeenRemote
}

// Bootstrapped reports whether the startup reconciliation has completed.
func (e *Engine) Bootstrapped() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.bootstrapped
}

// Subscribe registers a callback invoked with each new document version.
// Callbacks run on the engine goroutine and must not block.
func (e *Engine) Subscribe(fn func(*project.Project)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, fn)
}

// Dispatch submits a mutation. It blocks only if the engine is saturated.
func (e *Engine) Dispatch(action project.Action) {
	select {
	case e.actions <- action:
	case <-e.done:
	}
}

// Resume triggers an immediate poll, the headless analog of the page coming
// back to the foreground. Coalesces when a poke is already pending.
func (e *Engine) Resume() {
	select {
	case e.pokes <- struct{}{}:
	default:
	}
}

// Start runs the one-time bootstrap reconciliation, then launches the event
// loop. Bootstrap never fails the engine: every failure path still marks
// bootstrap complete so periodic sync can proceed.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.bootstrap(ctx)
	go e.run(ctx)
}

// Stop cancels pending timers and the event loop, waits for it to exit,
// then writes a final local save so no accepted edit is lost to a pending
// debounce. In-flight completions become no-ops.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		if e.cancel != nil {
			e.cancel()
		}
		<-e.done
		e.saveLocal(context.Background())
	})
}

func (e *Engine) bootstrap(ctx context.Context) {
	localDoc, err := e.local.Load(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		e.logger.Warn("local cache unreadable, starting fresh", "error", err)
	}

	remoteDoc, remoteErr := e.remote.Get(ctx)

	switch {
	case remoteErr == nil:
		e.bootstrapWithRemote(ctx, localDoc, remoteDoc)

	case errors.Is(remoteErr, repository.ErrNotFound):
		// Remote store is empty: seed it with local content, or with a
		// fresh empty project when there is none.
		seed := localDoc
		if seed == nil {
			seed = e.freshProject()
		}
		stored, err := e.remote.Put(ctx, seed, "")
		if err != nil {
			// Keep local content; lastSeenRemote stays empty so the next
			// write-back retries the seed.
			e.logger.Warn("failed to seed remote, keeping local", "error", err)
			e.setDocument(seed, "")
			break
		}
		e.logger.Info("seeded remote from local content", "updatedAt", stored.UpdatedAt)
		e.setDocument(stored, stored.UpdatedAt)

	default:
		// Remote fetch failed outright. Keep local as current and record
		// its version as a best-effort marker; no real remote version is
		// known and nothing is seeded.
		e.logger.Warn("remote fetch failed during bootstrap", "error", remoteErr)
		current := localDoc
		if current == nil {
			current = e.freshProject()
		}
		e.setDocument(current, current.UpdatedAt)
	}

	e.mu.Lock()
	e.bootstrapped = true
	e.mu.Unlock()

	e.saveLocal(ctx)
}

func (e *Engine) bootstrapWithRemote(ctx context.Context, localDoc, remoteDoc *project.Project) {
	if localDoc != nil && localDoc.Meaningful() && project.Newer(localDoc.UpdatedAt, remoteDoc.UpdatedAt) {
		stored, err := e.remote.Put(ctx, localDoc, remoteDoc.UpdatedAt)
		switch {
		case err == nil:
			e.logger.Info("pushed newer local copy to remote", "updatedAt", stored.UpdatedAt)
			e.setDocument(stored, stored.UpdatedAt)
		default:
			if current, ok := repository.IsConflict(err); ok {
				// Someone else advanced the remote between our fetch and
				// write. Record their version; the next poll reconciles.
				e.countConflict()
				e.setDocument(localDoc, current)
			} else {
				e.logger.Warn("failed to push local copy during bootstrap", "error", err)
				e.setDocument(localDoc, remoteDoc.UpdatedAt)
			}
		}
		return
	}

	// Remote is authoritative regardless of local content.
	adopted := project.Reduce(e.baseDocument(localDoc), project.ImportRemote{Doc: remoteDoc}, e.now())
	e.setDocument(adopted, remoteDoc.UpdatedAt)
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	localTimer := newStoppedTimer()
	remoteTimer := newStoppedTimer()
	defer localTimer.Stop()
	defer remoteTimer.Stop()

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case action := <-e.actions:
			if e.apply(action) {
				localTimer.Reset(e.cfg.LocalSaveDebounce)
				remoteTimer.Reset(e.cfg.RemoteSaveDebounce)
			}
		case <-localTimer.C:
			e.saveLocal(ctx)
		case <-remoteTimer.C:
			e.pushRemote(ctx, localTimer, remoteTimer)
		case <-ticker.C:
			e.poll(ctx, localTimer)
		case <-e.pokes:
			e.poll(ctx, localTimer)
		}
	}
}

// apply runs an action through the reducer. Returns false for no-ops so
// nothing gets scheduled for them.
func (e *Engine) apply(action project.Action) bool {
	e.mu.Lock()
	current := e.doc
	next := project.Reduce(current, action, e.now())
	if next == current {
		e.mu.Unlock()
		return false
	}
	e.doc = next
	subs := e.subscribers
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.Actions.Inc()
	}
	for _, fn := range subs {
		fn(next)
	}
	return true
}

// saveLocal persists the current document to the local cache. Best effort:
// quota and availability failures are swallowed and retried on the next
// natural trigger.
func (e *Engine) saveLocal(ctx context.Context) {
	doc := e.Snapshot()
	if err := e.local.Save(ctx, doc); err != nil {
		e.logger.Warn("local save failed", "error", err)
		return
	}
	if e.metrics != nil {
		e.metrics.LocalSaves.Inc()
	}
}

// pushRemote attempts the debounced conditional write-back.
func (e *Engine) pushRemote(ctx context.Context, localTimer, remoteTimer *time.Timer) {
	e.mu.RLock()
	doc := e.doc
	lastSeen := e.lastSeenRemote
	applying := e.applyingRemote
	e.mu.RUnlock()

	// Nothing to push: the local copy is not ahead of what the remote
	// already has, or we are mid-adoption of a remote snapshot.
	if applying || !project.Newer(doc.UpdatedAt, lastSeen) {
		return
	}

	stored, err := e.remote.Put(ctx, doc, lastSeen)
	switch {
	case err == nil:
		// The server restamps updatedAt; its copy is authoritative.
		e.setDocument(stored, stored.UpdatedAt)
		if e.metrics != nil {
			e.metrics.RemoteSaves.Inc()
		}
		localTimer.Reset(e.cfg.LocalSaveDebounce)
	default:
		if current, ok := repository.IsConflict(err); ok {
			// Never overwrite on conflict: record the server's version and
			// immediately pull the remote state to decide who wins.
			e.countConflict()
			e.mu.Lock()
			e.lastSeenRemote = current
			e.mu.Unlock()
			e.reconcileAfterConflict(ctx, localTimer, remoteTimer)
			return
		}
		// Transient failure: leave state unchanged; the next change or the
		// next poll retries.
		e.logger.Warn("remote write-back failed", "error", err)
	}
}

// reconcileAfterConflict fetches the remote document after a lost write
// race. A remote newer than the local copy replaces it; otherwise the local
// copy stands and the write-back is retried against the corrected version.
func (e *Engine) reconcileAfterConflict(ctx context.Context, localTimer, remoteTimer *time.Timer) {
	remoteDoc, err := e.remote.Get(ctx)
	if err != nil {
		e.logger.Warn("failed to fetch remote after conflict", "error", err)
		return
	}

	e.mu.RLock()
	doc := e.doc
	e.mu.RUnlock()

	if project.Newer(remoteDoc.UpdatedAt, doc.UpdatedAt) {
		adopted := project.Reduce(doc, project.ImportRemote{Doc: remoteDoc}, e.now())
		e.adoptRemote(adopted)
		if e.metrics != nil {
			e.metrics.Adoptions.Inc()
		}
		localTimer.Reset(e.cfg.LocalSaveDebounce)
	} else {
		remoteTimer.Reset(e.cfg.RemoteSaveDebounce)
	}

	e.mu.Lock()
	e.lastSeenRemote = remoteDoc.UpdatedAt
	e.mu.Unlock()
}

// poll fetches the remote document and adopts it when it is newer than the
// last seen remote version and the local copy is not itself ahead.
func (e *Engine) poll(ctx context.Context, localTimer *time.Timer) {
	if e.metrics != nil {
		e.metrics.Polls.Inc()
	}

	remoteDoc, err := e.remote.Get(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			e.logger.Debug("poll fetch failed", "error", err)
		}
		return
	}

	e.mu.RLock()
	doc := e.doc
	lastSeen := e.lastSeenRemote
	e.mu.RUnlock()

	// Local is ahead with real data: do not clobber it; the write-back
	// path will reconcile.
	if doc.Meaningful() && project.Newer(doc.UpdatedAt, lastSeen) {
		return
	}

	if project.Newer(remoteDoc.UpdatedAt, lastSeen) {
		adopted := project.Reduce(doc, project.ImportRemote{Doc: remoteDoc}, e.now())
		e.adoptRemote(adopted)
		if e.metrics != nil {
			e.metrics.Adoptions.Inc()
		}
		localTimer.Reset(e.cfg.LocalSaveDebounce)
	}

	// Advance the marker even when nothing was adopted so an unchanged
	// remote is never re-applied.
	e.mu.Lock()
	e.lastSeenRemote = remoteDoc.UpdatedAt
	e.mu.Unlock()
}

// adoptRemote replaces the document with a remote snapshot. The
// applyingRemote flag keeps the write-back path from echoing the snapshot
// straight back to the remote.
func (e *Engine) adoptRemote(doc *project.Project) {
	e.mu.Lock()
	e.applyingRemote = true
	e.doc = doc
	subs := e.subscribers
	e.mu.Unlock()

	for _, fn := range subs {
		fn(doc)
	}

	e.mu.Lock()
	e.applyingRemote = false
	e.mu.Unlock()
}

func (e *Engine) setDocument(doc *project.Project, lastSeenRemote string) {
	clone := doc.Clone()
	e.mu.Lock()
	e.doc = clone
	e.lastSeenRemote = lastSeenRemote
	subs := e.subscribers
	e.mu.Unlock()

	for _, fn := range subs {
		fn(clone)
	}
}

func (e *Engine) baseDocument(localDoc *project.Project) *project.Project {
	if localDoc != nil {
		return localDoc
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc
}

func (e *Engine) freshProject() *project.Project {
	return project.New(e.cfg.ModelName, e.cfg.NumLayers, e.cfg.NumHeads, e.now())
}

func (e *Engine) countConflict() {
	if e.metrics != nil {
		e.metrics.Conflicts.Inc()
	}
}

// newStoppedTimer returns a timer that will not fire until Reset.
func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return t
}
