package tickets

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/catalog-api/internal/api"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	CreateTicketsHandler(w http.ResponseWriter, r *http.Request)
	ListTicketsHandler(w http.ResponseWriter, r *http.Request)
	GetTicketHandler(w http.ResponseWriter, r *http.Request)
	UpdateTicketHandler(w http.ResponseWriter, r *http.Request)
	CloseTicketHandler(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	logger  *slog.Logger
	service Service
}

func NewHandler(service Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{logger: logger, service: service}
}

// CreateTicketsHandler godoc
// @Summary      Create tickets
// @Description  Creates every ticket in the batch or none if any is invalid.
// @Tags         tickets
// @Accept       json
// @Produce      json
// @Param        tickets body []CreateTicketRequest true "Tickets"
// @Success      201 {array} Ticket
// @Failure      400 {object} api.Response
// @Failure      401 {object} api.Response
// @Security     BearerAuth
// @Router       /tickets [post]
func (h *HandlerImpl) CreateTicketsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TicketHandler").Start(r.Context(), "CreateTickets")
	defer span.End()
	l := h.logger.With(slog.String("handler", "CreateTicketsHandler"))

	var reqs []CreateTicketRequest
	if err := api.DecodeJSONBody(w, r, &reqs); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Bad request")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.service.CreateBatch(ctx, reqs)
	if err != nil {
		span.SetStatus(codes.Error, "create failed")
		api.WriteError(w, r, l, err)
		return
	}
	span.SetStatus(codes.Ok, "created")
	api.WriteJSONResponse(w, r, http.StatusCreated, created)
}

// ListTicketsHandler godoc
// @Summary      List tickets
// @Tags         tickets
// @Produce      json
// @Param        title  query string false "Title substring, case-insensitive"
// @Param        status query string false "open, stalled or closed"
// @Param        limit  query int    false "1 to 100" default(20)
// @Success      200 {array} Ticket
// @Failure      400 {object} api.Response
// @Security     BearerAuth
// @Router       /tickets [get]
func (h *HandlerImpl) ListTicketsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TicketHandler").Start(r.Context(), "ListTickets")
	defer span.End()
	l := h.logger.With(slog.String("handler", "ListTicketsHandler"))

	q := r.URL.Query()
	params := ListParams{Title: q.Get("title"), Status: Status(q.Get("status"))}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			api.ErrorResponse(w, r, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		params.Limit = n
	}

	out, err := h.service.List(ctx, params)
	if err != nil {
		span.SetStatus(codes.Error, "list failed")
		api.WriteError(w, r, l, err)
		return
	}
	span.SetAttributes(attribute.Int("tickets.returned", len(out)))
	api.WriteJSONResponse(w, r, http.StatusOK, out)
}

// GetTicketHandler godoc
// @Summary      Get a ticket
// @Tags         tickets
// @Produce      json
// @Param        id path string true "Ticket UUID"
// @Success      200 {object} Ticket
// @Failure      400 {object} api.Response
// @Failure      404 {object} api.Response
// @Security     BearerAuth
// @Router       /tickets/{id} [get]
func (h *HandlerImpl) GetTicketHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TicketHandler").Start(r.Context(), "GetTicket")
	defer span.End()
	l := h.logger.With(slog.String("handler", "GetTicketHandler"))

	id, ok := ticketID(w, r)
	if !ok {
		return
	}
	t, err := h.service.Get(ctx, id)
	if err != nil {
		api.WriteError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, t)
}

// UpdateTicketHandler godoc
// @Summary      Update a ticket
// @Description  Only the supplied fields change.
// @Tags         tickets
// @Accept       json
// @Produce      json
// @Param        id     path string              true "Ticket UUID"
// @Param        ticket body UpdateTicketRequest true "Fields to change"
// @Success      200 {object} Ticket
// @Failure      400 {object} api.Response
// @Failure      404 {object} api.Response
// @Security     BearerAuth
// @Router       /tickets/{id} [put]
func (h *HandlerImpl) UpdateTicketHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TicketHandler").Start(r.Context(), "UpdateTicket")
	defer span.End()
	l := h.logger.With(slog.String("handler", "UpdateTicketHandler"))

	id, ok := ticketID(w, r)
	if !ok {
		return
	}
	var req UpdateTicketRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.RecordError(err)
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.service.Update(ctx, id, req)
	if err != nil {
		span.SetStatus(codes.Error, "update failed")
		api.WriteError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, t)
}

// CloseTicketHandler godoc
// @Summary      Close a ticket
// @Tags         tickets
// @Produce      json
// @Param        id path string true "Ticket UUID"
// @Success      200 {object} Ticket
// @Failure      404 {object} api.Response
// @Security     BearerAuth
// @Router       /tickets/{id}/close [patch]
func (h *HandlerImpl) CloseTicketHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TicketHandler").Start(r.Context(), "CloseTicket")
	defer span.End()
	l := h.logger.With(slog.String("handler", "CloseTicketHandler"))

	id, ok := ticketID(w, r)
	if !ok {
		return
	}
	t, err := h.service.Close(ctx, id)
	if err != nil {
		api.WriteError(w, r, l, err)
		return
	}
	l.InfoContext(ctx, "Ticket closed", slog.String("ticket_id", id.String()))
	api.WriteJSONResponse(w, r, http.StatusOK, t)
}

func ticketID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid ticket id")
		return uuid.Nil, false
	}
	return id, true
}
