package api

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/FACorreiaa/catalog-api/internal/docstore"
)

var (
	ErrValidation      = errors.New("invalid request")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrNotFound        = errors.New("requested item not found")
	// ErrStoreUnavailable is the document store's connectivity sentinel.
	ErrStoreUnavailable = docstore.ErrUnavailable
)

// Error pairs an error kind with a message that is safe to send to clients.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Fail returns an error of the given kind carrying a client-facing message.
func Fail(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Failf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Page is one slice of a filtered result set. Total counts the whole
// filtered set, independent of paging.
type Page[T any] struct {
	Items    []T
	Total    int64
	Page     int
	PageSize int
	Pages    int
}

func NewPage[T any](items []T, total int64, req PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:    items,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Pages:    PageCount(total, req.PageSize),
	}
}

// PageCount is ceil(total / pageSize).
func PageCount(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

type PageRequest struct {
	Page     int
	PageSize int
}

func (p PageRequest) Skip() int64 {
	return int64(p.Page-1) * int64(p.PageSize)
}

func (p PageRequest) Limit() int64 {
	return int64(p.PageSize)
}

type PageLimits struct {
	DefaultPageSize int
	MaxPageSize     int
}

var DefaultPageLimits = PageLimits{DefaultPageSize: 100, MaxPageSize: 1000}

// ParsePageRequest reads page and page_size from q. Out of range values are
// validation errors rather than being clamped.
func ParsePageRequest(q url.Values, limits PageLimits) (PageRequest, error) {
	req := PageRequest{Page: 1, PageSize: limits.DefaultPageSize}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return PageRequest{}, Fail(ErrValidation, "page must be an integer >= 1")
		}
		req.Page = n
	}
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > limits.MaxPageSize {
			return PageRequest{}, Failf(ErrValidation, "page_size must be an integer between 1 and %d", limits.MaxPageSize)
		}
		req.PageSize = n
	}
	if int64(req.Page-1) > math.MaxInt64/int64(req.PageSize) {
		return PageRequest{}, Fail(ErrValidation, "page is out of range")
	}
	return req, nil
}

type Pagination struct {
	Total    int64 `json:"total" example:"101"`
	Page     int   `json:"page" example:"1"`
	PageSize int   `json:"page_size" example:"100"`
	Pages    int   `json:"pages" example:"2"`
}

// PageResponse is the JSON envelope for paginated listings.
type PageResponse[T any] struct {
	Status     string     `json:"status" example:"success"`
	Message    string     `json:"message,omitempty"`
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func NewPageResponse[T any](p Page[T]) PageResponse[T] {
	return PageResponse[T]{
		Status: "success",
		Data:   p.Items,
		Pagination: Pagination{
			Total:    p.Total,
			Page:     p.Page,
			PageSize: p.PageSize,
			Pages:    p.Pages,
		},
	}
}

// Response represents a generic API response for success or error messages.
type Response struct {
	Success   bool   `json:"success" example:"false"`
	Message   string `json:"message,omitempty" example:"Operation successful"`
	Error     string `json:"error,omitempty" example:"Resource not found"`
	RequestID string `json:"request_id,omitempty"`
}
