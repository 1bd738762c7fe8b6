// Package server contains the HTTP handlers and route wiring for the API.
package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/url"
	"strconv"

	"mumble/internal/models"
	"mumble/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Offset int
	Limit  int
}

const (
	defaultPaginationLimit = 100
	maxPaginationLimit     = 1000
)

// parsePagination extracts offset and limit query parameters. The limit
// defaults to 100 and is clamped to [0, 1000]; negative offsets collapse
// to zero.
func parsePagination(c *fiber.Ctx) Pagination {
	limit := c.QueryInt("limit", defaultPaginationLimit)
	if limit < 0 {
		limit = 0
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Offset: offset,
		Limit:  limit,
	}
}

// pageLinks builds the next/previous URLs of a paginated listing, carrying
// over every query parameter of the current request with a shifted offset.
// Next is null on the last page; previous is null on the first.
func pageLinks(c *fiber.Ctx, page Pagination, count int64) (next, previous *string) {
	values := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		if k == "offset" {
			return
		}
		values.Add(k, string(value))
	})
	values.Set("limit", strconv.Itoa(page.Limit))
	base := c.BaseURL() + c.Path()

	link := func(offset int) *string {
		v := url.Values{}
		for k, vs := range values {
			v[k] = vs
		}
		v.Set("offset", strconv.Itoa(offset))
		u := fmt.Sprintf("%s?%s", base, v.Encode())
		return &u
	}

	if count > int64(page.Offset+page.Limit) {
		next = link(page.Offset + page.Limit)
	}
	if page.Offset > 0 {
		prev := page.Offset - page.Limit
		if prev < 0 {
			prev = 0
		}
		previous = link(prev)
	}
	return next, previous
}

// newPage assembles the paginated response envelope.
func newPage[T any](c *fiber.Ctx, page Pagination, count int64, data []T) models.PaginatedResult[T] {
	next, previous := pageLinks(c, page, count)
	if data == nil {
		data = []T{}
	}
	return models.PaginatedResult[T]{
		Count:    count,
		Data:     data,
		Next:     next,
		Previous: previous,
	}
}

// formText extracts an optional text field from a multipart form. A present
// but empty value still counts as set.
func formText(form *multipart.Form, field string) *string {
	values, ok := form.Value[field]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

// formMedia extracts an optional media file from a multipart form, enforcing
// the size limit and the image-only rule. On violation it writes the error
// response with the given status and returns errResponseWritten.
func formMedia(c *fiber.Ctx, form *multipart.Form, maxBytes int64, invalidStatus int) (*service.MediaUpload, error) {
	files, ok := form.File["media"]
	if !ok || len(files) == 0 {
		return nil, nil
	}

	header := files[0]
	contentType := header.Header.Get("Content-Type")
	media := &service.MediaUpload{
		ContentType: contentType,
		Size:        header.Size,
	}
	if !media.IsImage() {
		_ = models.RespondWithError(c, invalidStatus,
			models.NewValidationError("Only image uploads are allowed"))
		return nil, errResponseWritten
	}
	if header.Size > maxBytes {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(fmt.Sprintf("Media exceeds the maximum size of %d bytes", maxBytes)))
		return nil, errResponseWritten
	}

	file, err := header.Open()
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unreadable media file"))
		return nil, errResponseWritten
	}
	media.File = file
	if !media.DecodesAsImage() {
		_ = models.RespondWithError(c, invalidStatus,
			models.NewValidationError("Media does not decode as an image"))
		return nil, errResponseWritten
	}
	return media, nil
}

// respondServiceError translates a service error into the HTTP response.
func respondServiceError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.HTTPStatus(err), err)
}
