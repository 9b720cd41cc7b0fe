package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/chatwire/chatwire/internal/chat"
)

// defaultPageSize applies when the size query parameter is absent.
const defaultPageSize = 50

// parseListParams reads pagination query parameters.
//
// Supported parameters: page (1-based), size (0 = unbounded), search,
// sort_by, order (ASC|DESC, case-insensitive). Range clamping is left
// to ListParams.Normalize; only unparseable values are rejected here.
func parseListParams(r *http.Request) (chat.ListParams, error) {
	q := r.URL.Query()

	params := chat.ListParams{
		Page:   1,
		Size:   defaultPageSize,
		Search: q.Get("search"),
		SortBy: q.Get("sort_by"),
	}

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return chat.ListParams{}, fmt.Errorf("page must be an integer")
		}
		params.Page = page
	}

	if raw := q.Get("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 0 {
			return chat.ListParams{}, fmt.Errorf("size must be a non-negative integer")
		}
		params.Size = size
	}

	switch order := strings.ToUpper(q.Get("order")); order {
	case "", "ASC":
	case "DESC":
		params.Descending = true
	default:
		return chat.ListParams{}, fmt.Errorf("order must be ASC or DESC")
	}

	return params, nil
}
