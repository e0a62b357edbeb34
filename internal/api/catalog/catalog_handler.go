package catalog

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/catalog-api/internal/api"
	"github.com/FACorreiaa/catalog-api/internal/docstore"
	"github.com/FACorreiaa/catalog-api/internal/export"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	ListBrandsHandler(w http.ResponseWriter, r *http.Request)
	CreateBrandHandler(w http.ResponseWriter, r *http.Request)
	ListMerchantsHandler(w http.ResponseWriter, r *http.Request)
	CreateMerchantHandler(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	logger  *slog.Logger
	service Service
	limits  api.PageLimits
	now     func() time.Time
}

func NewHandler(service Service, limits api.PageLimits, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		logger:  logger,
		service: service,
		limits:  limits,
		now:     time.Now,
	}
}

// ListBrandsHandler godoc
// @Summary      List brands
// @Description  Case-insensitive substring search on name or manufacturer. export_as=csv|excel returns a file attachment of the whole filtered set.
// @Tags         catalog
// @Produce      json
// @Produce      text/csv
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        name       query string false "Name or manufacturer filter"
// @Param        export_as  query string false "json, csv or excel" default(json)
// @Param        page       query int    false "Page number" default(1)
// @Param        page_size  query int    false "Page size (max 1000)" default(100)
// @Success      200 {object} api.PageResponse[map[string]any]
// @Failure      400 {object} api.Response
// @Failure      401 {object} api.Response
// @Failure      503 {object} api.Response
// @Security     BearerAuth
// @Router       /brands [get]
func (h *HandlerImpl) ListBrandsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CatalogHandler").Start(r.Context(), "ListBrands")
	defer span.End()
	l := h.logger.With(slog.String("handler", "ListBrandsHandler"))

	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("export_as"))
	if err != nil {
		span.SetStatus(codes.Error, "bad export format")
		api.WriteError(w, r, l, err)
		return
	}
	span.SetAttributes(attribute.String("export.format", string(format)))

	if format == export.FormatJSON {
		h.writePage(w, r.WithContext(ctx), l, CollectionBrand)
		return
	}

	records, err := h.service.ExportSet(ctx, CollectionBrand, q.Get("name"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "export query failed")
		api.WriteError(w, r, l, err)
		return
	}

	// Render fully before writing headers so a failure can still become a
	// JSON error response.
	var buf bytes.Buffer
	if err := export.Write(&buf, records, format, "Brands"); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "export render failed")
		api.WriteError(w, r, l, err)
		return
	}

	filename := export.Filename("brands", format, h.now())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		l.WarnContext(ctx, "Client went away during export", slog.Any("error", err))
	}
	l.InfoContext(ctx, "Brands exported", slog.String("file", filename), slog.Int("records", len(records)))
	span.SetStatus(codes.Ok, "exported")
}

// CreateBrandHandler godoc
// @Summary      Create a brand
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        brand body map[string]any true "Brand document; name is required"
// @Success      201 {object} map[string]any
// @Failure      400 {object} api.Response
// @Failure      401 {object} api.Response
// @Security     BearerAuth
// @Router       /brands [post]
func (h *HandlerImpl) CreateBrandHandler(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, CollectionBrand)
}

// ListMerchantsHandler godoc
// @Summary      List merchants
// @Tags         catalog
// @Produce      json
// @Param        name       query string false "Name or manufacturer filter"
// @Param        page       query int    false "Page number" default(1)
// @Param        page_size  query int    false "Page size (max 1000)" default(100)
// @Success      200 {object} api.PageResponse[map[string]any]
// @Failure      400 {object} api.Response
// @Failure      401 {object} api.Response
// @Security     BearerAuth
// @Router       /merchant [get]
func (h *HandlerImpl) ListMerchantsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CatalogHandler").Start(r.Context(), "ListMerchants")
	defer span.End()
	h.writePage(w, r.WithContext(ctx), h.logger.With(slog.String("handler", "ListMerchantsHandler")), CollectionMerchant)
}

// CreateMerchantHandler godoc
// @Summary      Create a merchant
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        merchant body map[string]any true "Merchant document; name is required"
// @Success      201 {object} map[string]any
// @Failure      400 {object} api.Response
// @Security     BearerAuth
// @Router       /merchant [post]
func (h *HandlerImpl) CreateMerchantHandler(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, CollectionMerchant)
}

func (h *HandlerImpl) writePage(w http.ResponseWriter, r *http.Request, l *slog.Logger, collection string) {
	ctx := r.Context()
	q := r.URL.Query()

	req, err := api.ParsePageRequest(q, h.limits)
	if err != nil {
		api.WriteError(w, r, l, err)
		return
	}

	page, err := h.service.Page(ctx, collection, q.Get("name"), req)
	if err != nil {
		l.ErrorContext(ctx, "Catalog query failed", slog.String("collection", collection), slog.Any("error", err))
		api.WriteError(w, r, l, err)
		return
	}

	l.DebugContext(ctx, "Catalog page served",
		slog.String("collection", collection),
		slog.Int64("total", page.Total),
		slog.Int("page", page.Page))
	api.WriteJSONResponse(w, r, http.StatusOK, api.NewPageResponse(page))
}

func (h *HandlerImpl) create(w http.ResponseWriter, r *http.Request, collection string) {
	ctx, span := otel.Tracer("CatalogHandler").Start(r.Context(), "Create")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection))
	l := h.logger.With(slog.String("handler", "create"), slog.String("collection", collection))

	var doc docstore.Document
	if err := api.DecodeJSONBody(w, r, &doc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Bad request")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	stored, err := h.service.Create(ctx, collection, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		api.WriteError(w, r, l, err)
		return
	}

	l.InfoContext(ctx, "Catalog record created", slog.Any("name", stored[FieldName]))
	span.SetStatus(codes.Ok, "created")
	api.WriteJSONResponse(w, r, http.StatusCreated, stored)
}
