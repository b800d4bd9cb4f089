package handler

import (
	"net/http"

	"github.com/mkurosawa/partscan/internal/api/response"
)

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health.
func NewHealthHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, map[string]string{
			"status":  "ok",
			"version": version,
		})
	}
}
