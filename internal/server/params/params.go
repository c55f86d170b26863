package params

import (
	"fmt"
	"net/url"
	"strconv"
)

// Page extracts limit/offset pagination from query parameters. Missing
// values fall back to the provided default limit and offset 0; negative
// or non-numeric input is rejected so the handler can answer 400.
func Page(q url.Values, defaultLimit int) (limit, offset int, err error) {
	limit = defaultLimit
	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return 0, 0, fmt.Errorf("invalid 'limit' parameter: %q", limitStr)
		}
	}

	if offsetStr := q.Get("offset"); offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid 'offset' parameter: %q", offsetStr)
		}
	}

	return limit, offset, nil
}

// ID parses a numeric path segment.
func ID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id: %q", raw)
	}
	return id, nil
}
