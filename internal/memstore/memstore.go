package memstore

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/roach88/infobase/internal/codec"
	"github.com/roach88/infobase/internal/query"
	"github.com/roach88/infobase/internal/store"
	"github.com/roach88/infobase/internal/thing"
)

var (
	_ store.Store    = (*Store)(nil)
	_ store.DocStore = (*Store)(nil)
)

// revision is one persisted revision of a key.
type revision struct {
	data     []byte // codec wire form
	author   string
	created  time.Time
	changeID string
}

// entry is the revision history of one key.
type entry struct {
	revisions []revision
	written   uint64 // write order, for recency listing
}

// Store is an in-memory store.Store and store.DocStore.
type Store struct {
	mu sync.RWMutex

	things   map[string]*entry
	versions []store.Version
	changes  []*store.Change
	changeAt map[string]int
	issued   map[string]bool
	writes   uint64

	users  map[string]store.UserDetails
	emails map[string]string // lower-cased email -> user key

	docs *docs
	seqs *counters

	clock  store.Clock
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to timestamp writes.
func WithClock(c store.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		things:   make(map[string]*entry),
		changeAt: make(map[string]int),
		issued:   make(map[string]bool),
		users:    make(map[string]store.UserDetails),
		emails:   make(map[string]string),
		docs:     newDocs(),
		seqs:     newCounters(),
		clock:    store.SystemClock{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize implements store.Store. The in-memory store needs no setup.
func (s *Store) Initialize(ctx context.Context) error {
	s.logger.DebugContext(ctx, "memstore initialized")
	return nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	return nil
}

// Get returns the latest revision of key.
func (s *Store) Get(ctx context.Context, key string) (*thing.Thing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.things[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, store.ErrNotFound)
	}
	return s.load(key, e, len(e.revisions))
}

// GetRevision returns revision rev of key.
func (s *Store) GetRevision(ctx context.Context, key string, rev int) (*thing.Thing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.things[key]
	if !ok || rev < 1 || rev > len(e.revisions) {
		return nil, fmt.Errorf("get %s@%d: %w", key, rev, store.ErrNotFound)
	}
	return s.load(key, e, rev)
}

// GetMany returns the existing Things among keys, in input order.
func (s *Store) GetMany(ctx context.Context, keys []string) ([]*thing.Thing, error) {
	return store.GetMany(ctx, s, keys)
}

// load decodes revision rev of e. Callers hold s.mu.
func (s *Store) load(key string, e *entry, rev int) (*thing.Thing, error) {
	r := e.revisions[rev-1]
	t, err := codec.Unmarshal(s, key, r.data)
	if err != nil {
		return nil, fmt.Errorf("load %s@%d: %w", key, rev, err)
	}
	t.Metadata = thing.Metadata{
		Revision:       rev,
		LatestRevision: len(e.revisions),
		Created:        e.revisions[0].created,
		LastModified:   r.created,
		LastAuthor:     r.author,
	}
	return t, nil
}

// Write commits req atomically.
func (s *Store) Write(ctx context.Context, req store.WriteRequest) (*store.Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := store.NormalizeData(req.Data)
	if err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	refs, err := store.PlanWrite(req, func(key string) (int, error) {
		if e, ok := s.things[key]; ok {
			return len(e.revisions), nil
		}
		return 0, nil
	})
	if err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	// Encode everything before touching state so a bad value aborts the
	// whole write.
	encoded := make([][]byte, len(req.Mutations))
	for i, m := range req.Mutations {
		b, err := codec.Marshal(m.Content(s))
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", m.Key, err)
		}
		encoded[i] = b
	}

	now := s.clock.Now()
	change := &store.Change{
		ID:        store.NewChangeID(now),
		Kind:      store.ChangeKind(req),
		Author:    req.Author,
		IP:        req.IP,
		Timestamp: now,
		Comment:   req.Comment,
		Changes:   refs,
		Data:      data,
	}

	for i, ref := range refs {
		e, ok := s.things[ref.Key]
		if !ok {
			e = &entry{}
			s.things[ref.Key] = e
		}
		s.writes++
		e.written = s.writes
		e.revisions = append(e.revisions, revision{
			data:     encoded[i],
			author:   req.Author,
			created:  now,
			changeID: change.ID,
		})
		s.versions = append(s.versions, store.Version{
			Key:      ref.Key,
			Revision: ref.Revision,
			Author:   req.Author,
			IP:       req.IP,
			Comment:  req.Comment,
			Kind:     change.Kind,
			ChangeID: change.ID,
			Created:  now,
		})
	}
	s.changeAt[change.ID] = len(s.changes)
	s.changes = append(s.changes, change)

	s.logger.DebugContext(ctx, "write committed",
		"change", change.ID,
		"kind", change.Kind,
		"keys", len(refs),
	)
	return cloneChange(change), nil
}

// recentKeys returns all keys, most recently written first. Callers hold
// s.mu.
func (s *Store) recentKeys() []string {
	keys := make([]string, 0, len(s.things))
	for k := range s.things {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return cmp.Compare(s.things[b].written, s.things[a].written)
	})
	return keys
}

// latest decodes the latest revision of every key, most recent first.
// Callers hold s.mu.
func (s *Store) latest() ([]*thing.Thing, error) {
	keys := s.recentKeys()
	out := make([]*thing.Thing, 0, len(keys))
	for _, k := range keys {
		e := s.things[k]
		t, err := s.load(k, e, len(e.revisions))
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ThingRecords lists matching Things, most recently written first.
func (s *Store) ThingRecords(ctx context.Context, q query.Query) ([]*thing.Thing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkThingQuery(q); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.latest()
	if err != nil {
		return nil, fmt.Errorf("things: %w", err)
	}
	return query.Page(query.Filter(all, q, store.ThingRecord), q), nil
}

// Things lists the keys of matching Things.
func (s *Store) Things(ctx context.Context, q query.Query) ([]string, error) {
	things, err := s.ThingRecords(ctx, q)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(things))
	for i, t := range things {
		keys[i] = t.Key
	}
	return keys, nil
}

func checkThingQuery(q query.Query) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("things: %w", err)
	}
	if err := q.Restrict(query.FieldType, query.FieldKey, query.AnyProperty); err != nil {
		return fmt.Errorf("things: %w", err)
	}
	return nil
}

// Versions lists revisions, most recent first.
func (s *Store) Versions(ctx context.Context, q query.Query) ([]store.Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("versions: %w", err)
	}
	if err := q.Restrict(query.FieldKey, query.FieldAuthor); err != nil {
		return nil, fmt.Errorf("versions: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return query.List(s.versions, q, func(v store.Version) query.Record { return v }), nil
}

// RecentChanges lists changes, most recent first.
func (s *Store) RecentChanges(ctx context.Context, cq store.ChangeQuery) ([]*store.Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := cq.Query()
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("recent changes: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := query.List(s.changes, q, func(c *store.Change) query.Record { return c })
	out := make([]*store.Change, len(found))
	for i, c := range found {
		out[i] = cloneChange(c)
	}
	return out, nil
}

// GetChange returns the change with the given id.
func (s *Store) GetChange(ctx context.Context, id string) (*store.Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.changeAt[id]
	if !ok {
		return nil, fmt.Errorf("get change %s: %w", id, store.ErrNotFound)
	}
	return cloneChange(s.changes[i]), nil
}

func cloneChange(c *store.Change) *store.Change {
	out := *c
	out.Changes = slices.Clone(c.Changes)
	out.Data = make(map[string]any, len(c.Data))
	for k, v := range c.Data {
		out.Data[k] = v
	}
	return &out
}

// NewKey returns a key no Thing uses and no earlier call returned.
func (s *Store) NewKey(ctx context.Context, typeKey string, hints map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := store.GenerateKey(ctx, typeKey, hints, func(ctx context.Context, key string) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		_, exists := s.things[key]
		return exists || s.issued[key], nil
	})
	if err != nil {
		return "", err
	}
	s.issued[key] = true
	return key, nil
}

// NextValue increments the named sequence.
func (s *Store) NextValue(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.seqs.get(name, true).Next(), nil
}

// CurrentValue returns the last value issued by the named sequence, 0 if
// it was never used.
func (s *Store) CurrentValue(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c := s.seqs.get(name, false)
	if c == nil {
		return 0, nil
	}
	return c.Current(), nil
}

// GetUserDetails returns the credentials of user key.
func (s *Store) GetUserDetails(ctx context.Context, key string) (*store.UserDetails, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[key]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", key, store.ErrNotFound)
	}
	return &u, nil
}

// UpdateUserDetails creates or updates user key.
func (s *Store) UpdateUserDetails(ctx context.Context, key, email, encryptedPassword string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("update user: %w: empty key", store.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.users[key]
	u.Key = key
	if email != "" {
		lower := strings.ToLower(email)
		if owner, ok := s.emails[lower]; ok && owner != key {
			return fmt.Errorf("update user %s: %w: email already in use", key, store.ErrValidation)
		}
		delete(s.emails, strings.ToLower(u.Email))
		u.Email = email
		s.emails[lower] = key
	}
	if encryptedPassword != "" {
		u.EncryptedPassword = encryptedPassword
	}
	s.users[key] = u
	return nil
}

// FindUser returns the key of the user with the given email.
func (s *Store) FindUser(ctx context.Context, email string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return "", fmt.Errorf("find user %s: %w", email, store.ErrNotFound)
	}
	return key, nil
}
