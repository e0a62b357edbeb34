package tickets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/catalog-api/internal/api"
)

// MockService is a mock implementation of the Service interface
type MockService struct {
	mock.Mock
}

func (m *MockService) CreateBatch(ctx context.Context, reqs []CreateTicketRequest) ([]Ticket, error) {
	args := m.Called(ctx, reqs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Ticket), args.Error(1)
}

func (m *MockService) List(ctx context.Context, params ListParams) ([]Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Ticket), args.Error(1)
}

func (m *MockService) Get(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Ticket), args.Error(1)
}

func (m *MockService) Update(ctx context.Context, id uuid.UUID, req UpdateTicketRequest) (*Ticket, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Ticket), args.Error(1)
}

func (m *MockService) Close(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Ticket), args.Error(1)
}

func newTestRouter(service Service) http.Handler {
	h := NewHandler(service, discardLogger())
	r := chi.NewRouter()
	r.Post("/tickets", h.CreateTicketsHandler)
	r.Get("/tickets", h.ListTicketsHandler)
	r.Get("/tickets/{id}", h.GetTicketHandler)
	r.Put("/tickets/{id}", h.UpdateTicketHandler)
	r.Patch("/tickets/{id}/close", h.CloseTicketHandler)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestTicketHandlers(t *testing.T) {
	id := uuid.MustParse("6f1c1d2e-8a4b-4c1f-9a51-0f3f3f6f8a10")
	ticket := &Ticket{ID: id, Title: "Fibre outage", Status: StatusOpen, CreatedAt: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)}

	t.Run("Create returns 201", func(t *testing.T) {
		service := new(MockService)
		service.On("CreateBatch", mock.Anything, []CreateTicketRequest{{Title: "Fibre outage", Description: "Lisbon"}}).
			Return([]Ticket{*ticket}, nil)

		rec := do(t, newTestRouter(service), http.MethodPost, "/tickets", `[{"title":"Fibre outage","description":"Lisbon"}]`)
		assert.Equal(t, http.StatusCreated, rec.Code)
		var got []Ticket
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, id, got[0].ID)
	})

	t.Run("Create rejects an object body", func(t *testing.T) {
		rec := do(t, newTestRouter(new(MockService)), http.MethodPost, "/tickets", `{"title":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("List passes filters", func(t *testing.T) {
		service := new(MockService)
		service.On("List", mock.Anything, ListParams{Title: "fibre", Status: StatusClosed, Limit: 5}).Return([]Ticket{}, nil)

		rec := do(t, newTestRouter(service), http.MethodGet, "/tickets?title=fibre&status=closed&limit=5", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
		service.AssertExpectations(t)
	})

	t.Run("List rejects a bad limit", func(t *testing.T) {
		rec := do(t, newTestRouter(new(MockService)), http.MethodGet, "/tickets?limit=abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Get", func(t *testing.T) {
		service := new(MockService)
		service.On("Get", mock.Anything, id).Return(ticket, nil)
		rec := do(t, newTestRouter(service), http.MethodGet, "/tickets/"+id.String(), "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"open"`)
	})

	t.Run("Get not found", func(t *testing.T) {
		service := new(MockService)
		service.On("Get", mock.Anything, id).Return(nil, api.Fail(api.ErrNotFound, "Ticket not found"))
		rec := do(t, newTestRouter(service), http.MethodGet, "/tickets/"+id.String(), "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Ticket not found")
	})

	t.Run("Malformed id", func(t *testing.T) {
		service := new(MockService)
		for _, path := range []string{"/tickets/not-a-uuid", "/tickets/123/close"} {
			method := http.MethodGet
			if strings.HasSuffix(path, "/close") {
				method = http.MethodPatch
			}
			rec := do(t, newTestRouter(service), method, path, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		}
		service.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("Partial update", func(t *testing.T) {
		service := new(MockService)
		title := "Fibre outage (Lisbon)"
		service.On("Update", mock.Anything, id, UpdateTicketRequest{Title: &title}).Return(ticket, nil)
		rec := do(t, newTestRouter(service), http.MethodPut, "/tickets/"+id.String(), `{"title":"Fibre outage (Lisbon)"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		service.AssertExpectations(t)
	})

	t.Run("Close", func(t *testing.T) {
		service := new(MockService)
		closed := *ticket
		closed.Status = StatusClosed
		service.On("Close", mock.Anything, id).Return(&closed, nil)
		rec := do(t, newTestRouter(service), http.MethodPatch, "/tickets/"+id.String()+"/close", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"closed"`)
	})
}
