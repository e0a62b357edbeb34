package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/FACorreiaa/catalog-api/internal/api"
	"github.com/FACorreiaa/catalog-api/internal/docstore"
)

const collection = "tickets"

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	Insert(ctx context.Context, t Ticket) error
	List(ctx context.Context, params ListParams) ([]Ticket, error)
	Get(ctx context.Context, id uuid.UUID) (*Ticket, error)
	// Update applies set and reports api.ErrNotFound when no ticket has id.
	Update(ctx context.Context, id uuid.UUID, set docstore.Document) error
}

type RepositoryImpl struct {
	logger *slog.Logger
	store  docstore.Store
}

func NewRepository(store docstore.Store, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, store: store}
}

func (r *RepositoryImpl) Insert(ctx context.Context, t Ticket) error {
	_, err := r.store.InsertOne(ctx, collection, docstore.Document{
		"id":          t.ID.String(),
		"title":       t.Title,
		"description": t.Description,
		"status":      string(t.Status),
		"created_at":  t.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("inserting ticket %s: %w", t.ID, err)
	}
	return nil
}

func (r *RepositoryImpl) List(ctx context.Context, params ListParams) ([]Ticket, error) {
	var filter docstore.Filter
	if params.Title != "" {
		filter = filter.And(docstore.Contains("title", params.Title))
	}
	if params.Status != "" {
		filter = filter.And(docstore.Eq("status", string(params.Status)))
	}

	docs, err := r.store.FindMany(ctx, collection, filter, docstore.FindOptions{
		Limit:   int64(params.Limit),
		Exclude: []string{docstore.IDField},
	})
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}

	out := make([]Ticket, 0, len(docs))
	for _, d := range docs {
		t, err := ticketFromDocument(d)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	doc, err := r.store.FindOne(ctx, collection, byID(id))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, api.Fail(api.ErrNotFound, "Ticket not found")
	}
	if err != nil {
		return nil, fmt.Errorf("loading ticket %s: %w", id, err)
	}
	return ticketFromDocument(doc)
}

func (r *RepositoryImpl) Update(ctx context.Context, id uuid.UUID, set docstore.Document) error {
	matched, err := r.store.UpdateOne(ctx, collection, byID(id), set)
	if err != nil {
		return fmt.Errorf("updating ticket %s: %w", id, err)
	}
	if matched == 0 {
		return api.Fail(api.ErrNotFound, "Ticket not found")
	}
	return nil
}

func byID(id uuid.UUID) docstore.Filter {
	return docstore.Where(docstore.Eq("id", id.String()))
}

func ticketFromDocument(doc docstore.Document) (*Ticket, error) {
	idStr, _ := doc.String("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("TICKET_DOCUMENT_INVALID").With("id", idStr).Wrapf(err, "parsing ticket id")
	}
	t := &Ticket{ID: id}
	t.Title, _ = doc.String("title")
	t.Description, _ = doc.String("description")
	status, _ := doc.String("status")
	t.Status = Status(status)

	if created, ok := doc.String("created_at"); ok {
		if t.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, oops.Code("TICKET_DOCUMENT_INVALID").With("id", idStr).Wrapf(err, "parsing created_at")
		}
	}
	return t, nil
}
