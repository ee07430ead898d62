package audit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"shopadmin.app/internal/ids"
	"shopadmin.app/internal/obs"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200

	defaultWriteTimeout = 5 * time.Second
)

// Recorder writes and reads the activity log. Record never blocks the
// caller on storage and never reports storage failures to it.
type Recorder struct {
	store     Store
	directory Directory
	feed      *Feed
	logger    *zap.Logger
	now       func() time.Time
	timeout   time.Duration

	errs     chan error
	inflight sync.WaitGroup
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger used for dropped writes.
func WithLogger(l *zap.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithFeed publishes every persisted entry to f.
func WithFeed(f *Feed) Option {
	return func(r *Recorder) { r.feed = f }
}

// WithDirectory resolves actor usernames on List.
func WithDirectory(d Directory) Option {
	return func(r *Recorder) { r.directory = d }
}

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(r *Recorder) {
		if fn != nil {
			r.now = fn
		}
	}
}

// WithWriteTimeout bounds each background write.
func WithWriteTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithErrorBuffer sizes the channel returned by Errors. Zero disables it.
func WithErrorBuffer(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.errs = make(chan error, n)
		} else {
			r.errs = nil
		}
	}
}

func NewRecorder(store Store, opts ...Option) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("audit store is required")
	}
	r := &Recorder{
		store:   store,
		logger:  obs.Logger(),
		now:     time.Now,
		timeout: defaultWriteTimeout,
		errs:    make(chan error, 32),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Errors reports background write failures. Failures are dropped when
// nobody drains the channel. Returns nil when disabled.
func (r *Recorder) Errors() <-chan error { return r.errs }

// Record stamps ev and persists it in the background. The write survives
// cancellation of ctx.
func (r *Recorder) Record(ctx context.Context, ev Event) {
	entry, err := r.build(ev)
	if err != nil {
		r.fail(entry, err)
		return
	}
	writeCtx := context.WithoutCancel(ctx)
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		if err := r.persist(writeCtx, entry); err != nil {
			r.fail(entry, err)
		}
	}()
}

// RecordSync persists ev before returning and reports the failure.
func (r *Recorder) RecordSync(ctx context.Context, ev Event) (Entry, error) {
	entry, err := r.build(ev)
	if err != nil {
		return Entry{}, err
	}
	if err := r.persist(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Wait blocks until background writes started so far have finished.
func (r *Recorder) Wait() { r.inflight.Wait() }

// List returns one page of entries, newest first.
func (r *Recorder) List(ctx context.Context, f Filter, page, pageSize int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page-1 > math.MaxInt/pageSize {
		return Page{}, fmt.Errorf("%w: page %d is out of range", ErrInvalidInput, page)
	}
	entries, total, err := r.store.ListEntries(ctx, f, (page-1)*pageSize, pageSize)
	if err != nil {
		return Page{}, fmt.Errorf("list entries: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	if err := r.resolveNames(ctx, entries); err != nil {
		r.logger.Warn("audit_actor_lookup_failed", zap.Error(err))
	}
	return Page{
		Entries:    entries,
		Page:       page,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
		Total:      total,
	}, nil
}

// Get loads a single entry with its actor name resolved.
func (r *Recorder) Get(ctx context.Context, id string) (Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Entry{}, fmt.Errorf("%w: entry id is required", ErrInvalidInput)
	}
	e, err := r.store.GetEntry(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	one := []Entry{e}
	if err := r.resolveNames(ctx, one); err != nil {
		r.logger.Warn("audit_actor_lookup_failed", zap.Error(err))
	}
	return one[0], nil
}

// Archive marks an immutable entry as archived. Mutable entries and
// entries already archived yield ErrNotModifiable.
func (r *Recorder) Archive(ctx context.Context, id string) (Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Entry{}, fmt.Errorf("%w: entry id is required", ErrInvalidInput)
	}
	return r.store.ArchiveEntry(ctx, id)
}

func (r *Recorder) build(ev Event) (Entry, error) {
	entry := Entry{
		ID:        ids.New(),
		ActorID:   strings.TrimSpace(ev.ActorID),
		Role:      ev.Role,
		Action:    Action(strings.TrimSpace(string(ev.Action))),
		TargetID:  strings.TrimSpace(ev.TargetID),
		Metadata:  cloneMetadata(ev.Metadata),
		IPAddress: strings.TrimSpace(ev.IPAddress),
		Timestamp: r.now().UTC(),
	}
	if entry.ActorID == "" {
		return entry, fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}
	if entry.Action == "" {
		return entry, fmt.Errorf("%w: action is required", ErrInvalidInput)
	}
	entry.Immutable = entry.Action.Sensitive()
	return entry, nil
}

func (r *Recorder) persist(ctx context.Context, e Entry) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.store.AppendEntry(ctx, e); err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	if r.feed != nil {
		r.feed.Publish(e)
	}
	return nil
}

func (r *Recorder) fail(e Entry, err error) {
	obs.AuditWriteFailed()
	r.logger.Error("audit_write_failed",
		zap.String("entry_id", e.ID),
		zap.String("action", string(e.Action)),
		zap.String("actor_id", e.ActorID),
		zap.Error(err),
	)
	if r.errs == nil {
		return
	}
	select {
	case r.errs <- err:
	default:
	}
}

func (r *Recorder) resolveNames(ctx context.Context, entries []Entry) error {
	if r.directory == nil || len(entries) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(entries))
	actorIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.ActorID]; ok {
			continue
		}
		seen[e.ActorID] = struct{}{}
		actorIDs = append(actorIDs, e.ActorID)
	}
	names, err := r.directory.Usernames(ctx, actorIDs)
	if err != nil {
		return err
	}
	for i := range entries {
		entries[i].ActorName = names[entries[i].ActorID]
	}
	return nil
}
