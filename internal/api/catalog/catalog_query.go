package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/catalog-api/app/observability/metrics"
	"github.com/FACorreiaa/catalog-api/internal/api"
	"github.com/FACorreiaa/catalog-api/internal/docstore"
	"github.com/FACorreiaa/catalog-api/internal/export"
)

const (
	CollectionBrand    = "brand"
	CollectionMerchant = "merchant"

	FieldName         = "name"
	FieldManufacturer = "manufacturer"
	FieldCreatedAt    = "created_at"
)

var _ Service = (*Engine)(nil)

type Service interface {
	Query(ctx context.Context, collection, name string, skip, limit int64) ([]docstore.Document, int64, error)
	Page(ctx context.Context, collection, name string, req api.PageRequest) (api.Page[docstore.Document], error)
	ExportSet(ctx context.Context, collection, name string) ([]docstore.Document, error)
	Create(ctx context.Context, collection string, doc docstore.Document) (docstore.Document, error)
}

// Engine runs name-filtered, paginated queries over catalog collections.
type Engine struct {
	store       docstore.Store
	metrics     *metrics.AppMetrics
	logger      *slog.Logger
	exportLimit int
	now         func() time.Time
}

// NewEngine builds an Engine. exportLimit can only lower export.MaxRecords.
func NewEngine(store docstore.Store, m *metrics.AppMetrics, exportLimit int, logger *slog.Logger) *Engine {
	if exportLimit <= 0 || exportLimit > export.MaxRecords {
		exportLimit = export.MaxRecords
	}
	return &Engine{
		store:       store,
		metrics:     m,
		logger:      logger,
		exportLimit: exportLimit,
		now:         time.Now,
	}
}

// NameFilter matches documents whose name or manufacturer contains name,
// ignoring case. An empty name matches every document.
func NameFilter(name string) docstore.Filter {
	if name == "" {
		return docstore.Filter{}
	}
	return docstore.AnyOf(
		docstore.Contains(FieldName, name),
		docstore.Contains(FieldManufacturer, name),
	)
}

// Query returns one window of the filtered set together with the size of the
// whole filtered set. The count and the fetch are separate reads.
func (e *Engine) Query(ctx context.Context, collection, name string, skip, limit int64) ([]docstore.Document, int64, error) {
	ctx, span := otel.Tracer("CatalogEngine").Start(ctx, "Query", trace.WithAttributes(
		attribute.String("collection", collection),
		attribute.String("filter.name", name),
		attribute.Int64("skip", skip),
		attribute.Int64("limit", limit),
	))
	defer span.End()
	start := time.Now()
	defer e.metrics.RecordQuery(ctx, collection, start)

	filter := NameFilter(name)
	var (
		items []docstore.Document
		total int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := e.store.Count(gctx, collection, filter)
		if err != nil {
			e.metrics.RecordStoreError(gctx, "count")
			return fmt.Errorf("counting %s: %w", collection, err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		docs, err := e.store.FindMany(gctx, collection, filter, docstore.FindOptions{
			Skip:    skip,
			Limit:   limit,
			Exclude: []string{docstore.IDField},
		})
		if err != nil {
			e.metrics.RecordStoreError(gctx, "find")
			return fmt.Errorf("fetching %s: %w", collection, err)
		}
		items = docs
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, 0, err
	}

	span.SetAttributes(attribute.Int64("total", total), attribute.Int("returned", len(items)))
	return items, total, nil
}

func (e *Engine) Page(ctx context.Context, collection, name string, req api.PageRequest) (api.Page[docstore.Document], error) {
	items, total, err := e.Query(ctx, collection, name, req.Skip(), req.Limit())
	if err != nil {
		return api.Page[docstore.Document]{}, err
	}
	return api.NewPage(items, total, req), nil
}

// ExportSet returns the unpaginated filtered set, capped at the export limit.
func (e *Engine) ExportSet(ctx context.Context, collection, name string) ([]docstore.Document, error) {
	items, total, err := e.Query(ctx, collection, name, 0, int64(e.exportLimit))
	if err != nil {
		return nil, err
	}
	if total > int64(e.exportLimit) {
		e.logger.WarnContext(ctx, "Export truncated",
			slog.String("collection", collection),
			slog.Int64("total", total),
			slog.Int("limit", e.exportLimit))
	}
	return items, nil
}

// Create stores doc with a server-assigned created_at and returns it as
// stored, without the internal id.
func (e *Engine) Create(ctx context.Context, collection string, doc docstore.Document) (docstore.Document, error) {
	ctx, span := otel.Tracer("CatalogEngine").Start(ctx, "Create", trace.WithAttributes(
		attribute.String("collection", collection),
	))
	defer span.End()

	name, _ := doc[FieldName].(string)
	if name == "" {
		return nil, api.Fail(api.ErrValidation, "name is required")
	}

	stored := make(docstore.Document, len(doc)+1)
	for k, v := range doc {
		if k == docstore.IDField {
			continue
		}
		stored[k] = v
	}
	stored[FieldCreatedAt] = e.now().UTC().Truncate(time.Second).Format(time.RFC3339)

	if _, err := e.store.InsertOne(ctx, collection, stored); err != nil {
		e.metrics.RecordStoreError(ctx, "insert")
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, fmt.Errorf("inserting into %s: %w", collection, err)
	}
	return stored, nil
}
