package api

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageCount(t *testing.T) {
	tests := []struct {
		total    int64
		pageSize int
		want     int
	}{
		{0, 100, 0},
		{1, 100, 1},
		{100, 100, 1},
		{101, 100, 2},
		{10000, 1000, 10},
		{5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.total, tt.pageSize), func(t *testing.T) {
			assert.Equal(t, tt.want, PageCount(tt.total, tt.pageSize))
		})
	}
}

func TestParsePageRequest(t *testing.T) {
	limits := DefaultPageLimits

	t.Run("Defaults", func(t *testing.T) {
		req, err := ParsePageRequest(url.Values{}, limits)
		require.NoError(t, err)
		assert.Equal(t, PageRequest{Page: 1, PageSize: 100}, req)
		assert.EqualValues(t, 0, req.Skip())
		assert.EqualValues(t, 100, req.Limit())
	})

	t.Run("Skip and limit follow page and page_size", func(t *testing.T) {
		req, err := ParsePageRequest(url.Values{"page": {"3"}, "page_size": {"25"}}, limits)
		require.NoError(t, err)
		assert.EqualValues(t, 50, req.Skip())
		assert.EqualValues(t, 25, req.Limit())
	})

	t.Run("Bounds", func(t *testing.T) {
		for _, q := range []url.Values{
			{"page": {"0"}},
			{"page": {"-1"}},
			{"page": {"x"}},
			{"page_size": {"0"}},
			{"page_size": {"1001"}},
			{"page_size": {"ten"}},
		} {
			_, err := ParsePageRequest(q, limits)
			assert.ErrorIs(t, err, ErrValidation, q.Encode())
		}

		req, err := ParsePageRequest(url.Values{"page_size": {"1000"}}, limits)
		require.NoError(t, err)
		assert.Equal(t, 1000, req.PageSize)
	})

	t.Run("Skip overflow", func(t *testing.T) {
		_, err := ParsePageRequest(url.Values{"page": {"9223372036854775807"}, "page_size": {"1000"}}, limits)
		assert.ErrorIs(t, err, ErrValidation)

		// Largest page whose skip still fits in an int64.
		last := strconv.FormatInt(math.MaxInt64/1000+1, 10)
		req, err := ParsePageRequest(url.Values{"page": {last}, "page_size": {"1000"}}, limits)
		require.NoError(t, err)
		assert.Positive(t, req.Skip())
	})
}

func TestNewPageResponse(t *testing.T) {
	p := NewPage([]string{"a", "b"}, 101, PageRequest{Page: 2, PageSize: 100})
	resp := NewPageResponse(p)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, Pagination{Total: 101, Page: 2, PageSize: 100, Pages: 2}, resp.Pagination)
	assert.Equal(t, []string{"a", "b"}, resp.Data)

	empty := NewPage[string](nil, 0, PageRequest{Page: 1, PageSize: 10})
	assert.NotNil(t, empty.Items, "empty pages encode as [] not null")
}

func TestFail(t *testing.T) {
	err := fmt.Errorf("registering: %w", Fail(ErrConflict, "Username already registered"))
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrValidation)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Username already registered", apiErr.Message)
}
