package tickets

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/catalog-api/internal/api"
	"github.com/FACorreiaa/catalog-api/internal/docstore"
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	// CreateBatch validates every request before inserting any of them.
	CreateBatch(ctx context.Context, reqs []CreateTicketRequest) ([]Ticket, error)
	List(ctx context.Context, params ListParams) ([]Ticket, error)
	Get(ctx context.Context, id uuid.UUID) (*Ticket, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateTicketRequest) (*Ticket, error)
	Close(ctx context.Context, id uuid.UUID) (*Ticket, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	now    func() time.Time
}

func NewServiceImpl(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		now:    time.Now,
	}
}

func (s *ServiceImpl) CreateBatch(ctx context.Context, reqs []CreateTicketRequest) ([]Ticket, error) {
	ctx, span := otel.Tracer("TicketService").Start(ctx, "CreateBatch", trace.WithAttributes(
		attribute.Int("tickets.count", len(reqs)),
	))
	defer span.End()

	if len(reqs) == 0 {
		return nil, api.Fail(api.ErrValidation, "At least one ticket is required")
	}
	for i, r := range reqs {
		if strings.TrimSpace(r.Title) == "" {
			return nil, api.Failf(api.ErrValidation, "ticket %d: title is required", i)
		}
		if strings.TrimSpace(r.Description) == "" {
			return nil, api.Failf(api.ErrValidation, "ticket %d: description is required", i)
		}
		if r.Status != "" && !r.Status.Valid() {
			return nil, api.Failf(api.ErrValidation, "ticket %d: status must be one of open, stalled, closed", i)
		}
	}

	created := make([]Ticket, 0, len(reqs))
	for _, r := range reqs {
		t := Ticket{
			ID:          uuid.New(),
			Title:       r.Title,
			Description: r.Description,
			Status:      r.Status,
			CreatedAt:   s.now().UTC().Truncate(time.Second),
		}
		if t.Status == "" {
			t.Status = StatusOpen
		}
		if err := s.repo.Insert(ctx, t); err != nil {
			s.logger.ErrorContext(ctx, "Ticket batch stopped part way",
				slog.Int("inserted", len(created)),
				slog.Int("requested", len(reqs)),
				slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "insert failed")
			return nil, err
		}
		created = append(created, t)
	}

	s.logger.InfoContext(ctx, "Tickets created", slog.Int("count", len(created)))
	span.SetStatus(codes.Ok, "created")
	return created, nil
}

func (s *ServiceImpl) List(ctx context.Context, params ListParams) ([]Ticket, error) {
	ctx, span := otel.Tracer("TicketService").Start(ctx, "List", trace.WithAttributes(
		attribute.String("filter.title", params.Title),
		attribute.String("filter.status", string(params.Status)),
		attribute.Int("limit", params.Limit),
	))
	defer span.End()

	if params.Limit == 0 {
		params.Limit = DefaultListLimit
	}
	if params.Limit < 1 || params.Limit > MaxListLimit {
		return nil, api.Failf(api.ErrValidation, "limit must be between 1 and %d", MaxListLimit)
	}
	if params.Status != "" && !params.Status.Valid() {
		return nil, api.Fail(api.ErrValidation, "status must be one of open, stalled, closed")
	}

	out, err := s.repo.List(ctx, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, err
	}
	return out, nil
}

func (s *ServiceImpl) Get(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	ctx, span := otel.Tracer("TicketService").Start(ctx, "Get", trace.WithAttributes(
		attribute.String("ticket.id", id.String()),
	))
	defer span.End()
	return s.repo.Get(ctx, id)
}

// Update changes only the fields set in req. An empty update returns the
// ticket unchanged.
func (s *ServiceImpl) Update(ctx context.Context, id uuid.UUID, req UpdateTicketRequest) (*Ticket, error) {
	ctx, span := otel.Tracer("TicketService").Start(ctx, "Update", trace.WithAttributes(
		attribute.String("ticket.id", id.String()),
	))
	defer span.End()

	if req.Status != nil && !req.Status.Valid() {
		return nil, api.Fail(api.ErrValidation, "status must be one of open, stalled, closed")
	}
	if req.Empty() {
		return s.repo.Get(ctx, id)
	}

	set := docstore.Document{}
	if req.Title != nil {
		set["title"] = *req.Title
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	if req.Status != nil {
		set["status"] = string(*req.Status)
	}
	if err := s.repo.Update(ctx, id, set); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Close sets the status to closed. Closing a closed ticket succeeds.
func (s *ServiceImpl) Close(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	closed := StatusClosed
	return s.Update(ctx, id, UpdateTicketRequest{Status: &closed})
}
