// Package chatsync keeps a session's remote message log consistent with local
// state using as few writes as possible. Saves are debounced, serialized per
// session, and compared against the last known remote contents via message
// signatures: unchanged prefixes append only the new suffix, anything else
// falls back to a clear-and-rewrite.
//
// Cancellation is cooperative: a monotonic request token marks saves stale,
// and stale saves drop their result instead of aborting in-flight I/O.
package chatsync

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/draftboard-io/draftboard/pkg/cache"
	"github.com/draftboard-io/draftboard/pkg/chat"
	"github.com/draftboard-io/draftboard/pkg/chatstore"
)

// DefaultDebounce is the quiescence window after the last message-list change
// before a save fires.
const DefaultDebounce = 2 * time.Second

// Status is the user-visible sync state. Failures never block editing; they
// only drive this indicator.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
	StatusError  Status = "error"
)

// StatusUpdate is one status transition for a session.
type StatusUpdate struct {
	SessionID     string `json:"sessionId"`
	Status        Status `json:"status"`
	LastSavedAtMs int64  `json:"lastSavedAtMs,omitempty"`
	Error         string `json:"error,omitempty"`
}

// StatusFunc receives status transitions. Called outside engine locks.
type StatusFunc func(StatusUpdate)

// Config configures an Engine.
type Config struct {
	Remote   chatstore.Store
	Cache    cache.Store
	Debounce time.Duration
	OnStatus StatusFunc
}

// session is the per-session sync state. It is owned exclusively by the
// engine and discarded when the session is switched or cleared.
type session struct {
	id string

	// prevSigs is the last known remote signature list.
	prevSigs []string
	// latestReq is the monotonic request token; a save whose captured token
	// no longer matches has been superseded and must not write.
	latestReq uint64
	// pending is the most recent local message snapshot awaiting save.
	pending []chat.Message
	// dirty is set by NoteChange and cleared only when a save commits its
	// baseline, so a failed save stays eligible for retry.
	dirty bool

	lastFingerprint string
	lastSavedAtMs   int64
	timer           *time.Timer
	loading         bool
}

// Engine reconciles one active session's message log between the local cache
// and the remote store.
type Engine struct {
	remote   chatstore.Store
	cache    cache.Store
	debounce time.Duration
	onStatus StatusFunc

	mu   sync.Mutex // session bookkeeping: tokens, timer, pending snapshot
	sess *session

	// saveMu is the per-session write queue: every save runs with it held,
	// so writes against the remote store never interleave. Staleness is
	// checked after acquisition, which is what makes superseded saves drop
	// out instead of writing old data.
	saveMu sync.Mutex

	statusMu   sync.Mutex
	lastStatus StatusUpdate

	wg sync.WaitGroup
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Remote == nil {
		return nil, errors.New("chatsync: remote store is nil")
	}
	if cfg.Cache == nil {
		return nil, errors.New("chatsync: cache is nil")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Engine{
		remote:   cfg.Remote,
		cache:    cfg.Cache,
		debounce: cfg.Debounce,
		onStatus: cfg.OnStatus,
		lastStatus: StatusUpdate{Status: StatusIdle},
	}, nil
}

func cacheKey(sessionID string) string { return "draftboard:session:" + sessionID }

// Open switches the engine to the given session and loads its messages. Any
// pending save for the previous session is invalidated first, so a stale save
// can never land after the switch.
//
// The remote store is the source of truth: its result is adopted even when
// empty, so intentionally cleared remote history is not resurrected from the
// cache. Only a transport failure falls back to the local cache.
func (e *Engine) Open(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if e == nil {
		return nil, errors.New("chatsync: nil engine")
	}
	if sessionID == "" {
		return nil, errors.New("chatsync: session id is empty")
	}

	e.mu.Lock()
	e.invalidateLocked()
	sess := &session{id: sessionID, loading: true}
	e.sess = sess
	e.mu.Unlock()

	// Await any in-flight save of the previous session, swallowing its
	// outcome; it is already marked stale.
	e.saveMu.Lock()
	//nolint:staticcheck // empty critical section: the lock is the wait
	e.saveMu.Unlock()

	msgs, err := e.remote.LoadMessages(ctx, sessionID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("remote load failed, falling back to local cache")
		msgs = e.loadFromCache(sessionID)
		e.finishLoad(sess, msgs, nil)
		e.emit(StatusUpdate{SessionID: sessionID, Status: StatusError, Error: err.Error()})
		return msgs, nil
	}

	sigs, err := chat.Signatures(msgs)
	if err != nil {
		return nil, errors.Wrap(err, "chatsync: signatures of loaded messages")
	}
	e.finishLoad(sess, msgs, sigs)
	e.refreshCache(sessionID, msgs)
	return msgs, nil
}

func (e *Engine) loadFromCache(sessionID string) []chat.Message {
	raw, ok, err := e.cache.Get(cacheKey(sessionID))
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("local cache read failed")
		return nil
	}
	if !ok {
		return nil
	}
	msgs, err := chat.DecodeCacheEnvelope(raw)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("local cache entry is corrupt, ignoring")
		return nil
	}
	return msgs
}

// finishLoad installs the loaded baseline. prevSigs stays empty on a cache
// fallback: the remote contents are unknown, and an empty baseline routes the
// next save through the full-write path.
func (e *Engine) finishLoad(sess *session, msgs []chat.Message, sigs []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess != sess {
		return // superseded by another Open while loading
	}
	sess.prevSigs = sigs
	sess.lastFingerprint = chat.Fingerprint(msgs)
	sess.loading = false
}

// NoteChange records a new local message snapshot and arms the debounce
// timer. The snapshot is always recorded: the fingerprint is content-blind
// (count plus last-message summary), so it can only decide whether to restart
// the quiescence window, never whether a save is needed — in-place edits that
// keep the list length and the last message intact must still reach the save
// path, where the signature comparison catches them. A save whose snapshot
// turns out identical to the baseline writes nothing.
//
// Changes observed while the session is still loading are ignored; the load
// result is about to overwrite them anyway.
func (e *Engine) NoteChange(msgs []chat.Message) {
	if e == nil {
		return
	}
	e.mu.Lock()
	sess := e.sess
	if sess == nil || sess.loading {
		e.mu.Unlock()
		return
	}
	sess.pending = append([]chat.Message(nil), msgs...)
	sess.dirty = true
	fp := chat.Fingerprint(msgs)
	changed := fp != sess.lastFingerprint
	sess.lastFingerprint = fp
	if sess.timer != nil {
		if !changed {
			// Identical-looking snapshot: keep the running window so
			// repeated notifications cannot starve the pending save.
			e.mu.Unlock()
			return
		}
		sess.timer.Stop()
	}
	sess.timer = time.AfterFunc(e.debounce, func() {
		e.scheduleSave(context.Background(), sess)
	})
	e.mu.Unlock()
}

// SaveNow bypasses the debounce and performs the save synchronously,
// returning its error. Saves already queued stay subject to the usual
// staleness rules.
func (e *Engine) SaveNow(ctx context.Context) error {
	if e == nil {
		return errors.New("chatsync: nil engine")
	}
	e.mu.Lock()
	sess := e.sess
	if sess == nil || sess.loading || !sess.dirty {
		e.mu.Unlock()
		return nil
	}
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
	msgs := sess.pending
	sess.latestReq++
	reqID := sess.latestReq
	e.mu.Unlock()

	return e.save(ctx, sess, reqID, msgs)
}

// scheduleSave stamps a request token and runs the save on its own goroutine.
func (e *Engine) scheduleSave(ctx context.Context, sess *session) {
	e.mu.Lock()
	if e.sess != sess {
		e.mu.Unlock()
		return
	}
	msgs := sess.pending
	sess.timer = nil
	sess.latestReq++
	reqID := sess.latestReq
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		_ = e.save(ctx, sess, reqID, msgs)
	}()
}

// save is the queued save step. It runs with saveMu held so writes for the
// session never interleave, and drops out silently when superseded.
func (e *Engine) save(ctx context.Context, sess *session, reqID uint64, msgs []chat.Message) error {
	nextSigs, err := chat.Signatures(msgs)
	if err != nil {
		e.emit(StatusUpdate{SessionID: sess.id, Status: StatusError, Error: err.Error()})
		return errors.Wrap(err, "chatsync: signatures")
	}

	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	e.mu.Lock()
	stale := e.sess != sess || sess.latestReq != reqID
	prev := sess.prevSigs
	e.mu.Unlock()
	if stale {
		// Superseded while queued: expected under rapid edits, not an error.
		log.Debug().Str("session_id", sess.id).Uint64("request_id", reqID).Msg("save superseded, dropping")
		return nil
	}

	e.emit(StatusUpdate{SessionID: sess.id, Status: StatusSaving})

	// The local cache is refreshed regardless of the remote outcome so a
	// later load fallback sees the freshest local state.
	e.refreshCache(sess.id, msgs)

	var saveErr error
	switch {
	case len(prev) > 0 && chat.HasMatchingPrefix(prev, nextSigs):
		// Fast path: nothing before the prefix boundary changed; append the
		// suffix only. Equal lengths mean there is nothing to write.
		if suffix := msgs[len(prev):]; len(suffix) > 0 {
			saveErr = e.remote.AppendMessages(ctx, sess.id, suffix)
		}
	case len(prev) == 0:
		// First save for this session.
		if len(msgs) > 0 {
			saveErr = e.remote.AppendMessages(ctx, sess.id, msgs)
		}
	default:
		// An earlier message was edited, regenerated, or deleted. The only
		// correct path under arbitrary in-place edits is a full rewrite.
		log.Debug().Str("session_id", sess.id).Msg("signature prefix mismatch, rewriting remote log")
		if saveErr = e.remote.ClearMessages(ctx, sess.id); saveErr == nil {
			saveErr = e.remote.AppendMessages(ctx, sess.id, msgs)
		}
	}

	if saveErr != nil {
		// prevSigs is preserved so the next attempt still has a correct
		// baseline for the prefix comparison.
		log.Warn().Err(saveErr).Str("session_id", sess.id).Msg("remote save failed")
		e.emit(StatusUpdate{SessionID: sess.id, Status: StatusError, Error: saveErr.Error()})
		return saveErr
	}

	now := time.Now().UnixMilli()
	e.mu.Lock()
	if e.sess != sess || sess.latestReq != reqID {
		// Completed but superseded meanwhile: a newer save already owns the
		// baseline; do not clobber it.
		e.mu.Unlock()
		return nil
	}
	sess.prevSigs = nextSigs
	sess.lastSavedAtMs = now
	sess.dirty = false
	e.mu.Unlock()

	e.emit(StatusUpdate{SessionID: sess.id, Status: StatusSaved, LastSavedAtMs: now})
	return nil
}

func (e *Engine) refreshCache(sessionID string, msgs []chat.Message) {
	raw, err := chat.EncodeCacheEnvelope(msgs, time.Now())
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("encode cache envelope failed")
		return
	}
	if err := e.cache.Set(cacheKey(sessionID), raw); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("local cache write failed")
	}
}

// Clear invalidates pending saves, clears the remote log and the local cache
// entry, and resets the baseline to empty.
func (e *Engine) Clear(ctx context.Context) error {
	if e == nil {
		return errors.New("chatsync: nil engine")
	}
	e.mu.Lock()
	sess := e.sess
	if sess == nil {
		e.mu.Unlock()
		return nil
	}
	sess.latestReq++
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
	sess.pending = nil
	sess.dirty = false
	sess.lastFingerprint = chat.Fingerprint(nil)
	e.mu.Unlock()

	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	if err := e.remote.ClearMessages(ctx, sess.id); err != nil {
		e.emit(StatusUpdate{SessionID: sess.id, Status: StatusError, Error: err.Error()})
		return errors.Wrap(err, "chatsync: clear remote")
	}
	if err := e.cache.Remove(cacheKey(sess.id)); err != nil {
		log.Warn().Err(err).Str("session_id", sess.id).Msg("local cache remove failed")
	}

	e.mu.Lock()
	if e.sess == sess {
		sess.prevSigs = nil
	}
	e.mu.Unlock()
	e.emit(StatusUpdate{SessionID: sess.id, Status: StatusIdle})
	return nil
}

// ActiveSessionID returns the id of the currently open session, or "".
func (e *Engine) ActiveSessionID() string {
	if e == nil {
		return ""
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil {
		return ""
	}
	return e.sess.id
}

// Status returns the most recent status update.
func (e *Engine) Status() StatusUpdate {
	if e == nil {
		return StatusUpdate{Status: StatusIdle}
	}
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	return e.lastStatus
}

// Close invalidates pending work and waits for in-flight saves to finish.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	e.invalidateLocked()
	e.mu.Unlock()
	e.wg.Wait()
	return nil
}

// invalidateLocked marks the current session's pending work stale and cancels
// its debounce timer. Callers hold e.mu.
func (e *Engine) invalidateLocked() {
	if e.sess == nil {
		return
	}
	e.sess.latestReq++
	if e.sess.timer != nil {
		e.sess.timer.Stop()
		e.sess.timer = nil
	}
}

func (e *Engine) emit(u StatusUpdate) {
	e.statusMu.Lock()
	e.lastStatus = u
	e.statusMu.Unlock()
	if e.onStatus != nil {
		e.onStatus(u)
	}
}
