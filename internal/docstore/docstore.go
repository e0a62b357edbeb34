// Package docstore stores schemaless JSON documents grouped in named
// collections. Two drivers implement Store: PostgreSQL JSONB for deployments
// and an in-process cache for development and tests.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
)

var (
	ErrNotFound     = errors.New("docstore: document not found")
	ErrDuplicateKey = errors.New("docstore: duplicate key")
	ErrUnavailable  = errors.New("docstore: store unavailable")
)

// IDField is the store-assigned identifier added to every returned document.
// Callers usually exclude it.
const IDField = "_id"

type Document map[string]any

// String returns the field as text the way equality filters see it, or false
// for missing and null fields.
func (d Document) String(field string) (string, bool) {
	v, ok := d[field]
	if !ok {
		return "", false
	}
	return textValue(v)
}

type Op int

const (
	OpEq Op = iota
	// OpContains is a case-insensitive unanchored substring match.
	OpContains
)

type Condition struct {
	Field string
	Op    Op
	Value string
}

func Eq(field, value string) Condition {
	return Condition{Field: field, Op: OpEq, Value: value}
}

func Contains(field, value string) Condition {
	return Condition{Field: field, Op: OpContains, Value: value}
}

// Filter matches documents satisfying every All condition and, when Any is
// non-empty, at least one Any condition. The zero Filter matches everything.
type Filter struct {
	All []Condition
	Any []Condition
}

func Where(conds ...Condition) Filter {
	return Filter{All: conds}
}

func AnyOf(conds ...Condition) Filter {
	return Filter{Any: conds}
}

// And returns a copy of f with conds added to All.
func (f Filter) And(conds ...Condition) Filter {
	all := make([]Condition, 0, len(f.All)+len(conds))
	all = append(all, f.All...)
	all = append(all, conds...)
	return Filter{All: all, Any: f.Any}
}

type FindOptions struct {
	Skip  int64
	Limit int64 // 0 means no limit
	// Exclude lists top-level fields removed from results.
	Exclude []string
}

type Store interface {
	// FindMany returns matching documents in insertion order.
	FindMany(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]Document, error)
	Count(ctx context.Context, collection string, filter Filter) (int64, error)
	// InsertOne returns the store-assigned id.
	InsertOne(ctx context.Context, collection string, doc Document) (string, error)
	// FindOne returns the earliest matching document or ErrNotFound.
	FindOne(ctx context.Context, collection string, filter Filter) (Document, error)
	// UpdateOne merges set into the earliest matching document and reports
	// how many documents matched (0 or 1).
	UpdateOne(ctx context.Context, collection string, filter Filter, set Document) (int64, error)
	Ping(ctx context.Context) error
	Close()
}

// textValue renders v as PostgreSQL's ->> operator would.
func textValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}
