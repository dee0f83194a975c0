package pagination

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500

	// TotalCountHeader carries the unpaginated match count on list responses.
	TotalCountHeader = "X-Total-Count"
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts limit and offset from the query string. Missing or
// invalid values fall back to the defaults; limit is capped at MaxLimit.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// SetTotal writes the X-Total-Count header and a Link header pointing at the
// neighbouring pages of the current request.
func SetTotal(c echo.Context, total int64) {
	h := c.Response().Header()
	h.Set(TotalCountHeader, strconv.FormatInt(total, 10))

	p := FromContext(c)
	var links []string
	if p.HasPrevious() {
		links = append(links, pageLink(c, p.Limit, p.PreviousOffset(), "prev"))
	}
	if p.HasNext(total) {
		links = append(links, pageLink(c, p.Limit, p.NextOffset(), "next"))
	}
	if len(links) > 0 {
		h.Set("Link", strings.Join(links, ", "))
	}
}

func pageLink(c echo.Context, limit, offset int, rel string) string {
	u := *c.Request().URL
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()
	return fmt.Sprintf("<%s>; rel=%q", u.RequestURI(), rel)
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int64) bool {
	return int64(p.Offset+p.Limit) < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

// NextOffset returns the offset for the next page.
func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset returns the offset for the previous page, never below zero.
func (p Params) PreviousOffset() int {
	if p.Offset <= p.Limit {
		return 0
	}
	return p.Offset - p.Limit
}
