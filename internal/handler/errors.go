package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/tastetrack/internal/domain/apperr"
	"github.com/xenking/tastetrack/pkg/httpmiddleware"
)

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict, apperr.InvalidState:
		return http.StatusConflict
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to the API error body. Internal errors are logged and
// reported without their text.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		writeErrorStatus(w, http.StatusRequestEntityTooLarge, apperr.Validation.String(), "request body too large")
		return
	}

	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
	}
	writeErrorStatus(w, statusFor(kind), kind.String(), apperr.Message(err))
}

func writeErrorStatus(w http.ResponseWriter, status int, kind, message string) {
	httpmiddleware.WriteError(w, status, kind, message)
}
