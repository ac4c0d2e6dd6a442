// Package storetest is the behavioral test suite every store.Store and
// store.DocStore backend must pass.
package storetest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/infobase/internal/ir"
	"github.com/roach88/infobase/internal/query"
	"github.com/roach88/infobase/internal/store"
	"github.com/roach88/infobase/internal/testutil"
	"github.com/roach88/infobase/internal/thing"
)

// Factory opens a fresh, empty backend timestamping writes with clock.
type Factory func(t *testing.T, clock store.Clock) store.Store

// DocFactory opens a fresh, empty dictionary store.
type DocFactory func(t *testing.T) store.DocStore

// Run runs the Store contract suite.
func Run(t *testing.T, open Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store, clock *testutil.DeterministicClock)
	}{
		{"FirstWrite", testFirstWrite},
		{"Revisions", testRevisions},
		{"NotFound", testNotFound},
		{"RefResolution", testRefResolution},
		{"CodecAsymmetries", testCodecAsymmetries},
		{"AtomicWrite", testAtomicWrite},
		{"ValidationErrors", testValidationErrors},
		{"ExpectedRevision", testExpectedRevision},
		{"ConcurrentWrites", testConcurrentWrites},
		{"DeleteTombstone", testDeleteTombstone},
		{"GetMany", testGetMany},
		{"ListingOrder", testListingOrder},
		{"ListingLimits", testListingLimits},
		{"ListingFilters", testListingFilters},
		{"TypeFilterNeedsRef", testTypeFilterNeedsRef},
		{"RewriteMovesToFront", testRewriteMovesToFront},
		{"Versions", testVersions},
		{"ChangeFeed", testChangeFeed},
		{"Sequences", testSequences},
		{"ConcurrentSequences", testConcurrentSequences},
		{"NewKey", testNewKey},
		{"Users", testUsers},
		{"Initialize", testInitialize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := testutil.NewDeterministicClock()
			s := open(t, clock)
			tt.fn(t, s, clock)
		})
	}
}

func ctx() context.Context { return context.Background() }

// newThing builds a Thing of typeKey with string properties.
func newThing(t *testing.T, key, typeKey string, props ...string) *thing.Thing {
	t.Helper()
	th := thing.New(nil, key)
	if typeKey != "" {
		require.NoError(t, th.SetValue("type", ir.Ref(typeKey)))
	}
	require.Len(t, props, len(props)/2*2, "props must be name/value pairs")
	for i := 0; i < len(props); i += 2 {
		require.NoError(t, th.Set(props[i], props[i+1], ir.DatatypeString))
	}
	return th
}

func write(t *testing.T, s store.Store, things ...*thing.Thing) *store.Change {
	t.Helper()
	req := store.WriteRequest{}
	for _, th := range things {
		req.Mutations = append(req.Mutations, store.Mutation{Key: th.Key, Thing: th})
	}
	c, err := s.Write(ctx(), req)
	require.NoError(t, err)
	return c
}

func intPtr(n int) *int { return &n }

func testFirstWrite(t *testing.T, s store.Store, clock *testutil.DeterministicClock) {
	c := write(t, s, newThing(t, "/foo", "/type/object", "title", "hello"))

	assert.Equal(t, []store.ChangeRef{{Key: "/foo", Revision: 1}}, c.Changes)
	assert.Equal(t, store.KindUpdate, c.Kind)
	assert.Equal(t, testutil.Epoch, c.Timestamp.UTC())
	assert.NotEmpty(t, c.ID)

	got, err := s.Get(ctx(), "/foo")
	require.NoError(t, err)
	assert.Equal(t, "/foo", got.Key)
	assert.Equal(t, 1, got.Metadata.Revision)
	assert.Equal(t, 1, got.Metadata.LatestRevision)
	assert.True(t, got.Metadata.Created.Equal(testutil.Epoch))
	assert.True(t, got.Has("revision"))

	title, err := got.GetValue(ctx(), "title")
	require.NoError(t, err)
	assert.Equal(t, "hello", title)
	assert.Equal(t, "/type/object", got.TypeKey())
}

func testRevisions(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	write(t, s, newThing(t, "/foo", "", "title", "one"))
	c := store.WriteRequest{
		Author:    "/user/joe",
		Mutations: []store.Mutation{{Key: "/foo", Thing: newThing(t, "/foo", "", "title", "two")}},
	}
	change, err := s.Write(ctx(), c)
	require.NoError(t, err)
	assert.Equal(t, []store.ChangeRef{{Key: "/foo", Revision: 2}}, change.Changes)

	latest, err := s.Get(ctx(), "/foo")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Metadata.Revision)
	assert.Equal(t, "/user/joe", latest.Metadata.LastAuthor)
	assert.True(t, latest.Metadata.LastModified.After(latest.Metadata.Created))

	old, err := s.GetRevision(ctx(), "/foo", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, old.Metadata.Revision)
	assert.Equal(t, 2, old.Metadata.LatestRevision)
	title, err := old.Field(ctx(), "title")
	require.NoError(t, err)
	assert.Equal(t, "one", title)
}

func testNotFound(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	_, err := s.Get(ctx(), "/missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	write(t, s, newThing(t, "/foo", ""))
	for _, rev := range []int{0, 2, -1} {
		_, err = s.GetRevision(ctx(), "/foo", rev)
		assert.ErrorIs(t, err, store.ErrNotFound, "revision %d", rev)
	}

	_, err = s.GetChange(ctx(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testRefResolution(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	author := newThing(t, "/author/test", "/type/author", "name", "Test Author")
	other := newThing(t, "/author/other", "/type/author", "name", "Other")
	book := newThing(t, "/book/test", "/type/book", "title", "Test Book")
	require.NoError(t, book.Set("author", author, ir.DatatypeRef))
	require.NoError(t, book.Set("authors", []*thing.Thing{other, author}, ir.DatatypeRef))
	write(t, s, author, other, book)

	got, err := s.Get(ctx(), "/book/test")
	require.NoError(t, err)

	v, err := got.GetValue(ctx(), "author")
	require.NoError(t, err)
	a, ok := v.(*thing.Thing)
	require.True(t, ok, "got %T", v)
	assert.Equal(t, "/author/test", a.Key)
	name, err := a.Field(ctx(), "name")
	require.NoError(t, err)
	assert.Equal(t, "Test Author", name)

	v, err = got.GetValue(ctx(), "authors")
	require.NoError(t, err)
	list, ok := v.([]*thing.Thing)
	require.True(t, ok, "got %T", v)
	require.Len(t, list, 2)
	assert.Equal(t, "/author/other", list[0].Key)
	assert.Equal(t, "/author/test", list[1].Key)
}

func testCodecAsymmetries(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	th := newThing(t, "/x", "")
	require.NoError(t, th.Set("alias", "/y", ir.DatatypeKey))
	require.NoError(t, th.SetValue("tags", ir.List{Of: ir.DatatypeString}))
	require.NoError(t, th.Set("pages", 10, ir.DatatypeInt))
	require.NoError(t, th.Set("price", 2.0, ir.DatatypeFloat))
	require.NoError(t, th.Set("body", "<p>", ir.DatatypeText))
	write(t, s, th)

	got, err := s.Get(ctx(), "/x")
	require.NoError(t, err)

	dt, err := got.Datatype("alias")
	require.NoError(t, err)
	assert.Equal(t, ir.DatatypeString, dt)
	assert.False(t, got.Has("tags"), "empty list is dropped")

	for name, want := range map[string]ir.Datatype{
		"pages": ir.DatatypeInt,
		"price": ir.DatatypeFloat,
		"body":  ir.DatatypeText,
	} {
		dt, err := got.Datatype(name)
		require.NoError(t, err)
		assert.Equal(t, want, dt, name)
	}
}

func testAtomicWrite(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	write(t, s, newThing(t, "/b", ""))

	_, err := s.Write(ctx(), store.WriteRequest{Mutations: []store.Mutation{
		{Key: "/a", Thing: newThing(t, "/a", "")},
		{Key: "/b", Thing: newThing(t, "/b", ""), ExpectedRevision: intPtr(5)},
	}})
	require.ErrorIs(t, err, store.ErrWriteConflict)

	_, err = s.Get(ctx(), "/a")
	assert.ErrorIs(t, err, store.ErrNotFound)
	changes, err := s.RecentChanges(ctx(), store.ChangeQuery{})
	require.NoError(t, err)
	assert.Len(t, changes, 1)
}

func testValidationErrors(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	for name, req := range map[string]store.WriteRequest{
		"empty batch": {},
		"empty key":   {Mutations: []store.Mutation{{Thing: newThing(t, "", "")}}},
		"duplicate": {Mutations: []store.Mutation{
			{Key: "/a", Thing: newThing(t, "/a", "")},
			{Key: "/a", Thing: newThing(t, "/a", "")},
		}},
		"bad data": {
			Mutations: []store.Mutation{{Key: "/a", Thing: newThing(t, "/a", "")}},
			Data:      map[string]any{"f": func() {}},
		},
	} {
		_, err := s.Write(ctx(), req)
		assert.ErrorIs(t, err, store.ErrValidation, name)
	}

	keys, err := s.Things(ctx(), query.Query{})
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func testExpectedRevision(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	create := store.Mutation{Key: "/a", Thing: newThing(t, "/a", ""), ExpectedRevision: intPtr(0)}
	_, err := s.Write(ctx(), store.WriteRequest{Mutations: []store.Mutation{create}})
	require.NoError(t, err)

	_, err = s.Write(ctx(), store.WriteRequest{Mutations: []store.Mutation{create}})
	assert.ErrorIs(t, err, store.ErrWriteConflict)

	update := store.Mutation{Key: "/a", Thing: newThing(t, "/a", ""), ExpectedRevision: intPtr(1)}
	c, err := s.Write(ctx(), store.WriteRequest{Mutations: []store.Mutation{update}})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Changes[0].Revision)
}

func testDeleteTombstone(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	write(t, s, newThing(t, "/a", "/type/page", "title", "x"))
	c, err := s.Write(ctx(), store.WriteRequest{
		Kind:      store.KindDelete,
		Mutations: []store.Mutation{{Key: "/a", Delete: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, store.KindDelete, c.Kind)

	got, err := s.Get(ctx(), "/a")
	require.NoError(t, err)
	assert.True(t, store.IsDeleted(got))
	assert.Equal(t, 2, got.Metadata.Revision)
	assert.False(t, got.Has("title"))

	old, err := s.GetRevision(ctx(), "/a", 1)
	require.NoError(t, err)
	assert.Equal(t, "/type/page", old.TypeKey())

	pages, err := s.Things(ctx(), query.Query{Type: "/type/page"})
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func testGetMany(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	write(t, s, newThing(t, "/a", ""), newThing(t, "/b", ""), newThing(t, "/c", ""))

	got, err := s.GetMany(ctx(), []string{"/c", "/nope", "/a"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/c", got[0].Key)
	assert.Equal(t, "/a", got[1].Key)
}

func testListingOrder(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	for _, k := range []string{"/A", "/B", "/C"} {
		write(t, s, newThing(t, k, "/type/object"))
	}
	keys, err := s.Things(ctx(), query.Query{Type: "/type/object"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/C", "/B", "/A"}, keys)

	records, err := s.ThingRecords(ctx(), query.Query{Type: "/type/object"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "/C", records[0].Key)
	assert.Equal(t, 1, records[0].Metadata.Revision)
}

func testListingLimits(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	var things []*thing.Thing
	for i := 0; i < 120; i++ {
		things = append(things, newThing(t, fmt.Sprintf("/obj/%03d", i), "/type/object"))
	}
	write(t, s, things...)

	keys, err := s.Things(ctx(), query.Query{})
	require.NoError(t, err)
	assert.Len(t, keys, query.DefaultLimit)

	keys, err = s.Things(ctx(), query.Query{}.WithLimit(-1))
	require.NoError(t, err)
	assert.Len(t, keys, 120)

	keys, err = s.Things(ctx(), query.Query{}.WithLimit(3))
	require.NoError(t, err)
	assert.Equal(t, []string{"/obj/119", "/obj/118", "/obj/117"}, keys)

	keys, err = s.Things(ctx(), query.Query{Offset: 118}.WithLimit(5))
	require.NoError(t, err)
	assert.Equal(t, []string{"/obj/001", "/obj/000"}, keys)

	keys, err = s.Things(ctx(), query.Query{}.WithLimit(0))
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func testListingFilters(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	write(t, s, newThing(t, "/book/1", "/type/book", "lang", "en"))
	write(t, s, newThing(t, "/author/1", "/type/author", "lang", "en"))
	write(t, s, newThing(t, "/book/2", "/type/book", "lang", "fr"))
	write(t, s, newThing(t, "/book/3", "/type/book", "lang", "en"))

	keys, err := s.Things(ctx(), query.Query{Type: "/type/book"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/book/3", "/book/2", "/book/1"}, keys)

	keys, err = s.Things(ctx(), query.Query{Type: "/type/book", Name: "lang", Value: "en"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/book/3", "/book/1"}, keys)

	keys, err = s.Things(ctx(), query.Query{Name: "lang", Value: "en"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/book/3", "/author/1", "/book/1"}, keys)

	keys, err = s.Things(ctx(), query.Query{Key: "/book/2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/book/2"}, keys)

	_, err = s.Things(ctx(), query.Query{Author: "/user/x"})
	assert.ErrorIs(t, err, store.ErrValidation)
	_, err = s.Things(ctx(), query.Query{Offset: -1})
	assert.ErrorIs(t, err, store.ErrValidation)
}

func testTypeFilterNeedsRef(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	plain := thing.New(nil, "/x")
	require.NoError(t, plain.Set("type", "/type/book", ir.DatatypeString))
	require.NoError(t, plain.Set("title", "a", ir.DatatypeString))
	write(t, s, plain, newThing(t, "/book/1", "/type/book"))

	keys, err := s.Things(ctx(), query.Query{Type: "/type/book"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/book/1"}, keys)

	keys, err = s.Things(ctx(), query.Query{Name: "title", Value: "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/x"}, keys)

	got, err := s.Get(ctx(), "/x")
	require.NoError(t, err)
	dt, err := got.Datatype("type")
	require.NoError(t, err)
	assert.Equal(t, ir.DatatypeString, dt)
}

func testRewriteMovesToFront(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	for _, k := range []string{"/A", "/B", "/C"} {
		write(t, s, newThing(t, k, "/type/object"))
	}
	write(t, s, newThing(t, "/A", "/type/object", "title", "again"))

	keys, err := s.Things(ctx(), query.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"/A", "/C", "/B"}, keys)
}

func testVersions(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	for i, author := range []string{"/user/a", "/user/b", "/user/a"} {
		_, err := s.Write(ctx(), store.WriteRequest{
			Author:    author,
			Comment:   fmt.Sprintf("edit %d", i),
			Mutations: []store.Mutation{{Key: "/page", Thing: newThing(t, "/page", "")}},
		})
		require.NoError(t, err)
	}
	write(t, s, newThing(t, "/other", ""))

	all, err := s.Versions(ctx(), query.Query{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "/other", all[0].Key)

	page, err := s.Versions(ctx(), query.Query{Key: "/page"})
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, []int{3, 2, 1}, []int{page[0].Revision, page[1].Revision, page[2].Revision})
	assert.Equal(t, "edit 2", page[0].Comment)
	assert.NotEmpty(t, page[0].ChangeID)

	byA, err := s.Versions(ctx(), query.Query{Key: "/page", Author: "/user/a"}.WithLimit(1))
	require.NoError(t, err)
	require.Len(t, byA, 1)
	assert.Equal(t, 3, byA[0].Revision)

	_, err = s.Versions(ctx(), query.Query{Name: "title", Value: "x"})
	assert.ErrorIs(t, err, store.ErrValidation)
}

func testChangeFeed(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	first, err := s.Write(ctx(), store.WriteRequest{
		Kind:      store.KindCreate,
		Author:    "/user/a",
		IP:        "127.0.0.1",
		Comment:   "create",
		Data:      map[string]any{"bot": true},
		Mutations: []store.Mutation{{Key: "/a", Thing: newThing(t, "/a", "")}},
	})
	require.NoError(t, err)
	second := write(t, s, newThing(t, "/a", ""), newThing(t, "/b", ""))

	assert.Less(t, first.ID, second.ID)
	assert.Equal(t, []store.ChangeRef{{Key: "/a", Revision: 2}, {Key: "/b", Revision: 1}}, second.Changes)

	changes, err := s.RecentChanges(ctx(), store.ChangeQuery{})
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, second.ID, changes[0].ID)
	assert.Equal(t, first.ID, changes[1].ID)

	got, err := s.GetChange(ctx(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, store.KindCreate, got.Kind)
	assert.Equal(t, "/user/a", got.Author)
	assert.Equal(t, "127.0.0.1", got.IP)
	assert.Equal(t, "create", got.Comment)
	assert.Equal(t, map[string]any{"bot": true}, got.Data)
	assert.True(t, got.Timestamp.Equal(first.Timestamp))

	onlyB, err := s.RecentChanges(ctx(), store.ChangeQuery{Key: "/b"})
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	assert.Equal(t, second.ID, onlyB[0].ID)

	creates, err := s.RecentChanges(ctx(), store.ChangeQuery{Kind: store.KindCreate})
	require.NoError(t, err)
	require.Len(t, creates, 1)

	byAuthor, err := s.RecentChanges(ctx(), store.ChangeQuery{Author: "/user/a"})
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, first.ID, byAuthor[0].ID)

	limited, err := s.RecentChanges(ctx(), store.ChangeQuery{Limit: intPtr(1)})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second.ID, limited[0].ID)
}

func testSequences(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	v, err := s.CurrentValue(ctx(), "seq")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	for want := int64(1); want <= 3; want++ {
		got, err := s.NextValue(ctx(), "seq")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	v, err = s.CurrentValue(ctx(), "seq")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
	v, err = s.CurrentValue(ctx(), "seq")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v, "peek does not advance")

	other, err := s.NextValue(ctx(), "other")
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)
}

func testConcurrentWrites(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	const writers = 16
	things := make([]*thing.Thing, writers)
	for i := range things {
		things[i] = newThing(t, "/k", "/type/object", "writer", fmt.Sprint(i))
	}
	revs := make([]int, writers)
	var wg sync.WaitGroup
	wg.Add(writers)
	for i, th := range things {
		go func() {
			defer wg.Done()
			c, err := s.Write(ctx(), store.WriteRequest{
				Mutations: []store.Mutation{{Key: "/k", Thing: th}},
			})
			if !assert.NoError(t, err) {
				return
			}
			if assert.Len(t, c.Changes, 1) {
				revs[i] = c.Changes[0].Revision
			}
		}()
	}
	wg.Wait()

	slices.Sort(revs)
	want := make([]int, writers)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, revs)

	got, err := s.Get(ctx(), "/k")
	require.NoError(t, err)
	assert.Equal(t, writers, got.Metadata.LatestRevision)
	assert.Equal(t, writers, got.Metadata.Revision)

	versions, err := s.Versions(ctx(), query.Query{Key: "/k"}.WithLimit(-1))
	require.NoError(t, err)
	assert.Len(t, versions, writers)
}

func testConcurrentSequences(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	const workers, each = 8, 25
	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		wg   sync.WaitGroup
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				v, err := s.NextValue(ctx(), "shared")
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				assert.False(t, seen[v], "duplicate value %d", v)
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*each)
	v, err := s.CurrentValue(ctx(), "shared")
	require.NoError(t, err)
	assert.Equal(t, int64(workers*each), v)
}

func testNewKey(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	write(t, s, newThing(t, "/book/dune", "/type/book"))

	k1, err := s.NewKey(ctx(), "/type/book", map[string]string{"name": "Dune"})
	require.NoError(t, err)
	assert.Equal(t, "/book/dune-2", k1)

	k2, err := s.NewKey(ctx(), "/type/book", map[string]string{"name": "Dune"})
	require.NoError(t, err)
	assert.Equal(t, "/book/dune-3", k2)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		k, err := s.NewKey(ctx(), "/type/author", nil)
		require.NoError(t, err)
		assert.False(t, seen[k], "key %s issued twice", k)
		seen[k] = true
	}
}

func testUsers(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	_, err := s.GetUserDetails(ctx(), "/user/joe")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.FindUser(ctx(), "joe@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.UpdateUserDetails(ctx(), "/user/joe", "joe@example.com", "hash1"))
	u, err := s.GetUserDetails(ctx(), "/user/joe")
	require.NoError(t, err)
	assert.Equal(t, store.UserDetails{Key: "/user/joe", Email: "joe@example.com", EncryptedPassword: "hash1"}, *u)

	key, err := s.FindUser(ctx(), "joe@example.com")
	require.NoError(t, err)
	assert.Equal(t, "/user/joe", key)

	// Empty arguments keep current values.
	require.NoError(t, s.UpdateUserDetails(ctx(), "/user/joe", "", "hash2"))
	u, err = s.GetUserDetails(ctx(), "/user/joe")
	require.NoError(t, err)
	assert.Equal(t, "joe@example.com", u.Email)
	assert.Equal(t, "hash2", u.EncryptedPassword)

	require.NoError(t, s.UpdateUserDetails(ctx(), "/user/joe", "joe@new.example.com", ""))
	_, err = s.FindUser(ctx(), "joe@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
	key, err = s.FindUser(ctx(), "joe@new.example.com")
	require.NoError(t, err)
	assert.Equal(t, "/user/joe", key)

	err = s.UpdateUserDetails(ctx(), "/user/ann", "joe@new.example.com", "x")
	assert.ErrorIs(t, err, store.ErrValidation)
	assert.ErrorIs(t, s.UpdateUserDetails(ctx(), "", "a@b", "x"), store.ErrValidation)
}

func testInitialize(t *testing.T, s store.Store, _ *testutil.DeterministicClock) {
	require.NoError(t, s.Initialize(ctx()))
	write(t, s, newThing(t, "/a", ""))
	require.NoError(t, s.Initialize(ctx()))

	_, err := s.Get(ctx(), "/a")
	require.NoError(t, err)
}
