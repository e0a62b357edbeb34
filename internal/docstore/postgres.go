package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

var _ Store = (*PostgresStore)(nil)

// DB is satisfied by *pgxpool.Pool and by pgxmock pools.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore keeps every collection in one JSONB table, see
// app/db/migrations.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindMany(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]Document, error) {
	where, args := buildWhere(collection, filter)
	exclude := opts.Exclude
	if exclude == nil {
		exclude = []string{}
	}
	args = append(args, exclude)
	q := fmt.Sprintf("SELECT seq, doc - $%d::text[] FROM documents WHERE %s ORDER BY seq", len(args), where)
	if opts.Skip > 0 {
		args = append(args, opts.Skip)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, mapError("find", collection, err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		var seq int64
		var raw []byte
		if err := rows.Scan(&seq, &raw); err != nil {
			return nil, mapError("find scan", collection, err)
		}
		doc, err := decode(seq, raw, opts.Exclude)
		if err != nil {
			return nil, oops.With("operation", "find decode").With("collection", collection).Wrap(err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("find rows", collection, err)
	}
	return docs, nil
}

func (s *PostgresStore) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	where, args := buildWhere(collection, filter)
	var n int64
	err := s.db.QueryRow(ctx, "SELECT count(*) FROM documents WHERE "+where, args...).Scan(&n)
	if err != nil {
		return 0, mapError("count", collection, err)
	}
	return n, nil
}

func (s *PostgresStore) InsertOne(ctx context.Context, collection string, doc Document) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", oops.With("operation", "insert encode").With("collection", collection).Wrap(err)
	}
	var seq int64
	err = s.db.QueryRow(ctx,
		"INSERT INTO documents (collection, doc) VALUES ($1, $2::jsonb) RETURNING seq",
		collection, string(raw)).Scan(&seq)
	if err != nil {
		return "", mapError("insert", collection, err)
	}
	return strconv.FormatInt(seq, 10), nil
}

func (s *PostgresStore) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	where, args := buildWhere(collection, filter)
	var seq int64
	var raw []byte
	err := s.db.QueryRow(ctx, "SELECT seq, doc FROM documents WHERE "+where+" ORDER BY seq LIMIT 1", args...).Scan(&seq, &raw)
	if err != nil {
		return nil, mapError("find one", collection, err)
	}
	doc, err := decode(seq, raw, nil)
	if err != nil {
		return nil, oops.With("operation", "find one decode").With("collection", collection).Wrap(err)
	}
	return doc, nil
}

func (s *PostgresStore) UpdateOne(ctx context.Context, collection string, filter Filter, set Document) (int64, error) {
	if len(set) == 0 {
		_, err := s.FindOne(ctx, collection, filter)
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		return 1, nil
	}

	raw, err := json.Marshal(set)
	if err != nil {
		return 0, oops.With("operation", "update encode").With("collection", collection).Wrap(err)
	}
	where, args := buildWhere(collection, filter)
	args = append(args, string(raw))
	q := fmt.Sprintf(
		"UPDATE documents SET doc = doc || $%d::jsonb WHERE seq = (SELECT seq FROM documents WHERE %s ORDER BY seq LIMIT 1)",
		len(args), where)
	tag, err := s.db.Exec(ctx, q, args...)
	if err != nil {
		return 0, mapError("update", collection, err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return mapError("ping", "", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

// buildWhere renders filter as a WHERE body. Field names travel as
// parameters like values do.
func buildWhere(collection string, f Filter) (string, []any) {
	args := []any{collection}
	clauses := []string{"collection = $1"}

	render := func(c Condition) string {
		args = append(args, c.Field)
		field := len(args)
		if c.Op == OpContains {
			args = append(args, "%"+escapeLike(c.Value)+"%")
			return fmt.Sprintf("doc->>$%d ILIKE $%d", field, len(args))
		}
		args = append(args, c.Value)
		return fmt.Sprintf("doc->>$%d = $%d", field, len(args))
	}

	for _, c := range f.All {
		clauses = append(clauses, render(c))
	}
	if len(f.Any) > 0 {
		parts := make([]string, 0, len(f.Any))
		for _, c := range f.Any {
			parts = append(parts, render(c))
		}
		clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
	}
	return strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func decode(seq int64, raw []byte, exclude []string) (Document, error) {
	doc := Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if !slices.Contains(exclude, IDField) {
		doc[IDField] = strconv.FormatInt(seq, 10)
	}
	return doc, nil
}

// mapError turns driver errors into the package sentinels. Anything that is
// not a server-side error is treated as a connectivity failure.
func mapError(op, collection string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	builder := oops.With("operation", op).With("collection", collection)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgerrcode.UniqueViolation {
			return builder.Code("DUPLICATE_KEY").
				With("constraint", pgErr.ConstraintName).
				Wrap(fmt.Errorf("%w: %w", ErrDuplicateKey, err))
		}
		return builder.Code("STORE_QUERY_FAILED").With("pg_code", pgErr.Code).Wrap(err)
	}
	if errors.Is(err, context.Canceled) {
		return builder.Wrap(err)
	}
	return builder.Code("STORE_UNAVAILABLE").Wrap(fmt.Errorf("%w: %w", ErrUnavailable, err))
}
