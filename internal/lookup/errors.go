package lookup

import (
	"errors"

	"transmission-api/internal/catalog"
	apperrors "transmission-api/internal/common/errors"
	"transmission-api/internal/llm"
	"transmission-api/internal/query"
)

// ToStandardError maps lookup and upstream failures onto the shared error
// codes. Unknown errors become INTERNAL_ERROR.
func ToStandardError(err error) *apperrors.StandardError {
	var std *apperrors.StandardError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &std):
		return std
	case errors.Is(err, query.ErrInvalidQuery):
		return apperrors.NewInvalidQueryError("query is empty")
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		return apperrors.NewCatalogUnavailableError(err)
	case errors.Is(err, ErrNoCandidates):
		return apperrors.NewNoCandidatesError("")
	case errors.Is(err, llm.ErrUpstreamRateLimited):
		return apperrors.NewUpstreamRateLimitedError(err)
	case errors.Is(err, llm.ErrUpstreamTimeout):
		return apperrors.NewLLMTimeoutError()
	case errors.Is(err, llm.ErrMalformedReply):
		return apperrors.NewMalformedUpstreamReplyError(err)
	case errors.Is(err, llm.ErrUpstreamService):
		return apperrors.NewUpstreamServiceError(err)
	default:
		return apperrors.NewInternalError(err)
	}
}
