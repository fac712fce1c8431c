// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the default number of rows returned by list endpoints.
const PageSize = 50

// MaxPageSize caps what a caller may ask for.
const MaxPageSize = 200

// ParseLimit reads the named query parameter as a row count. Missing or
// invalid values give def; values above MaxPageSize are clamped.
func ParseLimit(r *http.Request, key string, def int) int {
	s := query.Get(r, key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}
