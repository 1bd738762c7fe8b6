package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paginationFor(t *testing.T, target string) Pagination {
	t.Helper()
	var got Pagination
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		got = parsePagination(c)
		return c.SendStatus(fiber.StatusNoContent)
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	return got
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   Pagination
	}{
		{"defaults", "/items", Pagination{Offset: 0, Limit: 100}},
		{"explicit", "/items?offset=30&limit=10", Pagination{Offset: 30, Limit: 10}},
		{"zero limit", "/items?limit=0", Pagination{Offset: 0, Limit: 0}},
		{"negative values", "/items?offset=-1&limit=-5", Pagination{Offset: 0, Limit: 0}},
		{"capped limit", "/items?limit=5000", Pagination{Offset: 0, Limit: 1000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, paginationFor(t, tt.target))
		})
	}
}

func TestPageLinks_PreservesFilters(t *testing.T) {
	var next, previous *string
	app := fiber.New()
	app.Get("/posts", func(c *fiber.Ctx) error {
		next, previous = pageLinks(c, parsePagination(c), 10)
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(
		http.MethodGet, "/posts?offset=4&limit=2&tags=tea&tags=coffee", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.NotNil(t, next)
	assert.Contains(t, *next, "offset=6")
	assert.Contains(t, *next, "limit=2")
	assert.Contains(t, *next, "tags=tea")
	assert.Contains(t, *next, "tags=coffee")

	require.NotNil(t, previous)
	assert.Contains(t, *previous, "offset=2")
}

func TestPageLinks_Boundaries(t *testing.T) {
	var next, previous *string
	app := fiber.New()
	app.Get("/posts", func(c *fiber.Ctx) error {
		next, previous = pageLinks(c, parsePagination(c), 4)
		return c.SendStatus(fiber.StatusNoContent)
	})

	// First page: no previous.
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/posts?offset=0&limit=2", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.NotNil(t, next)
	assert.Nil(t, previous)

	// Last page: no next, previous clamps to zero.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/posts?offset=3&limit=2", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Nil(t, next)
	require.NotNil(t, previous)
	assert.Contains(t, *previous, "offset=1")
}
