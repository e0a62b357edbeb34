package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/patrickmn/go-cache"
	"github.com/samber/oops"
)

var _ Store = (*MemoryStore)(nil)

const seqKey = "seq"

// UniqueIndex declares a field whose text value must be unique within a
// collection, mirroring the partial unique indexes of the PostgreSQL schema.
type UniqueIndex struct {
	Collection string
	Field      string
}

// DefaultUniqueIndexes matches app/db/migrations.
var DefaultUniqueIndexes = []UniqueIndex{
	{Collection: "users", Field: "username"},
	{Collection: "users", Field: "email"},
	{Collection: "tickets", Field: "id"},
}

type storedDoc struct {
	seq int64
	raw []byte
}

// MemoryStore keeps documents as encoded JSON in a go-cache instance so
// callers never share maps with the store.
type MemoryStore struct {
	mu      sync.Mutex // serializes writes; reads go straight to the cache
	items   *cache.Cache
	uniques []UniqueIndex
}

func NewMemoryStore(uniques ...UniqueIndex) *MemoryStore {
	c := cache.New(cache.NoExpiration, 0)
	_ = c.Add(seqKey, int64(0), cache.NoExpiration)
	return &MemoryStore{items: c, uniques: uniques}
}

func docKey(collection string, seq int64) string {
	return "doc:" + collection + ":" + strconv.FormatInt(seq, 10)
}

func uniqueKey(collection, field, value string) string {
	return "uniq:" + collection + ":" + field + ":" + value
}

func (s *MemoryStore) FindMany(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := s.scan(collection, filter)
	if err != nil {
		return nil, err
	}

	start := min(max(opts.Skip, 0), int64(len(all)))
	end := int64(len(all))
	if opts.Limit > 0 {
		end = min(start+opts.Limit, end)
	}

	out := make([]Document, 0, end-start)
	for _, d := range all[start:end] {
		for _, f := range opts.Exclude {
			delete(d, f)
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	all, err := s.scan(collection, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}

func (s *MemoryStore) InsertOne(ctx context.Context, collection string, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", oops.With("operation", "insert encode").With("collection", collection).Wrap(err)
	}
	// Normalise through JSON so stored values look like PostgreSQL's.
	normalized := Document{}
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return "", oops.With("operation", "insert decode").With("collection", collection).Wrap(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.items.IncrementInt64(seqKey, 1)
	if err != nil {
		return "", oops.With("operation", "insert sequence").Wrap(err)
	}

	claimed, err := s.claimUniques(collection, seq, nil, normalized)
	if err != nil {
		return "", err
	}
	if err := s.items.Add(docKey(collection, seq), storedDoc{seq: seq, raw: raw}, cache.NoExpiration); err != nil {
		s.release(claimed)
		return "", oops.With("operation", "insert").With("collection", collection).Wrap(err)
	}
	return strconv.FormatInt(seq, 10), nil
}

func (s *MemoryStore) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := s.scan(collection, filter)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNotFound
	}
	return all[0], nil
}

func (s *MemoryStore) UpdateOne(ctx context.Context, collection string, filter Filter, set Document) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	raw, err := json.Marshal(set)
	if err != nil {
		return 0, oops.With("operation", "update encode").With("collection", collection).Wrap(err)
	}
	patch := Document{}
	if err := json.Unmarshal(raw, &patch); err != nil {
		return 0, oops.With("operation", "update decode").With("collection", collection).Wrap(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	found, err := s.scan(collection, filter)
	if err != nil {
		return 0, err
	}
	if len(found) == 0 {
		return 0, nil
	}
	if len(patch) == 0 {
		return 1, nil
	}

	current := found[0]
	seq, err := strconv.ParseInt(current[IDField].(string), 10, 64)
	if err != nil {
		return 0, oops.With("operation", "update").Wrap(err)
	}
	delete(current, IDField)

	claimed, err := s.claimUniques(collection, seq, current, patch)
	if err != nil {
		return 0, err
	}
	for k, v := range patch {
		current[k] = v
	}
	merged, err := json.Marshal(current)
	if err != nil {
		s.release(claimed)
		return 0, oops.With("operation", "update encode").With("collection", collection).Wrap(err)
	}
	s.items.Set(docKey(collection, seq), storedDoc{seq: seq, raw: merged}, cache.NoExpiration)
	return 1, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) Close() {
	s.items.Flush()
}

// scan decodes every document of collection matching filter, ordered by seq.
func (s *MemoryStore) scan(collection string, filter Filter) ([]Document, error) {
	prefix := "doc:" + collection + ":"
	type hit struct {
		seq int64
		doc Document
	}
	var hits []hit
	for key, item := range s.items.Items() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		stored, ok := item.Object.(storedDoc)
		if !ok {
			continue
		}
		doc := Document{}
		if err := json.Unmarshal(stored.raw, &doc); err != nil {
			return nil, oops.With("operation", "scan decode").With("collection", collection).Wrap(err)
		}
		if !matches(doc, filter) {
			continue
		}
		doc[IDField] = strconv.FormatInt(stored.seq, 10)
		hits = append(hits, hit{seq: stored.seq, doc: doc})
	}
	slices.SortFunc(hits, func(a, b hit) int {
		return int(a.seq - b.seq)
	})

	out := make([]Document, len(hits))
	for i, h := range hits {
		out[i] = h.doc
	}
	return out, nil
}

// claimUniques reserves the unique keys patch introduces for the document at
// seq and frees the ones it replaces. Callers hold s.mu.
func (s *MemoryStore) claimUniques(collection string, seq int64, current, patch Document) ([]string, error) {
	var claimed, freed []string
	owner := strconv.FormatInt(seq, 10)
	for _, u := range s.uniques {
		if u.Collection != collection {
			continue
		}
		next, ok := patch.String(u.Field)
		if !ok {
			continue
		}
		prev, hadPrev := current.String(u.Field)
		if hadPrev && prev == next {
			continue
		}
		key := uniqueKey(collection, u.Field, next)
		if err := s.items.Add(key, owner, cache.NoExpiration); err != nil {
			s.release(claimed)
			return nil, oops.Code("DUPLICATE_KEY").
				With("collection", collection).
				With("field", u.Field).
				Wrap(fmt.Errorf("%w: %s", ErrDuplicateKey, u.Field))
		}
		claimed = append(claimed, key)
		if hadPrev {
			freed = append(freed, uniqueKey(collection, u.Field, prev))
		}
	}
	s.release(freed)
	return claimed, nil
}

func (s *MemoryStore) release(keys []string) {
	for _, k := range keys {
		s.items.Delete(k)
	}
}

func matches(doc Document, f Filter) bool {
	for _, c := range f.All {
		if !matchCondition(doc, c) {
			return false
		}
	}
	if len(f.Any) == 0 {
		return true
	}
	for _, c := range f.Any {
		if matchCondition(doc, c) {
			return true
		}
	}
	return false
}

func matchCondition(doc Document, c Condition) bool {
	v, ok := doc.String(c.Field)
	if !ok {
		return false
	}
	if c.Op == OpContains {
		return strings.Contains(strings.ToLower(v), strings.ToLower(c.Value))
	}
	return v == c.Value
}
