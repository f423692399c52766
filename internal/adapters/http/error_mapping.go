package httpadapter

import (
	"net/http"

	"github.com/rankpilot/rankd/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnsupportedModule):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNoRecommendation):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrRankTimeout):
		return http.StatusGatewayTimeout
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
