package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
	pkgpagination "github.com/vantagepos/licensing-backend/pkg/pagination"
)

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParsePagination reads page, pageSize, sortBy, and sortOrder from the query
// string. Allow-list checking happens later, inside each service.
func ParsePagination(r *http.Request) (pkgpagination.Params, error) {
	page, err := ParseQueryInt(r, "page", pkgpagination.DefaultPage, 1, 1<<30)
	if err != nil {
		return pkgpagination.Params{}, err
	}
	pageSize, err := ParseQueryInt(r, "pageSize", pkgpagination.DefaultPageSize, 1, pkgpagination.MaxPageSize)
	if err != nil {
		return pkgpagination.Params{}, err
	}
	return pkgpagination.Params{
		Page:      page,
		PageSize:  pageSize,
		SortBy:    strings.TrimSpace(r.URL.Query().Get("sortBy")),
		SortOrder: strings.TrimSpace(r.URL.Query().Get("sortOrder")),
	}, nil
}

// ParseUUIDParam parses a path or query value as a UUID.
func ParseUUIDParam(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").WithDetails(map[string]any{"field": field})
	}
	return id, nil
}
