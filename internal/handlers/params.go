package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cliphub/backend/internal/repositories"
)

func urlParam(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}

// pageParams reads ?page and ?limit. Out-of-range values are clamped by
// PageParams.Normalize rather than rejected.
func pageParams(r *http.Request) repositories.PageParams {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))
	return repositories.PageParams{Page: page, Limit: limit}
}
