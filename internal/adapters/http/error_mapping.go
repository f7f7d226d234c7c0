package httpadapter

import (
	"net/http"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrInvalidParameter):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrStoryNotFound),
		domain.IsKind(err, domain.ErrUploadNotFound),
		domain.IsKind(err, domain.ErrIndexNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrNotInitialized):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrProvider),
		domain.IsKind(err, domain.ErrEmbeddingService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
