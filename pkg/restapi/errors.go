package restapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/getmockd/mockman/pkg/instance"
)

// Error code tags, per §6's taxonomy. RELAY_ERROR is not produced here: it
// surfaces from the per-instance Dispatcher at request-serving time, not
// from any control-plane operation.
const (
	codeServerNotFound      = "SERVER_NOT_FOUND"
	codeServerAlreadyExists = "SERVER_ALREADY_EXISTS"
	codeInvalidCertificate  = "INVALID_CERTIFICATE"
	codeServerCreationFailed = "SERVER_CREATION_FAILED"
	codeInvalidExpectation  = "INVALID_EXPECTATION"
	codeValidationFailed    = "VALIDATION_FAILED"
	codeInternalServerError = "INTERNAL_SERVER_ERROR"
)

// mapInstanceError classifies an error returned by the Lifecycle Manager
// into an HTTP status and errorCode tag.
func mapInstanceError(err error) (int, string) {
	var (
		notFoundErr      *instance.NotFoundError
		conflictErr      *instance.ConflictError
		validationErr    *instance.ValidationError
		creationFailedErr *instance.CreationFailedError
	)
	switch {
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, codeServerNotFound
	case errors.As(err, &conflictErr):
		return http.StatusConflict, codeServerAlreadyExists
	case errors.As(err, &validationErr):
		if strings.Contains(strings.ToLower(validationErr.Reason), "tls") ||
			strings.Contains(strings.ToLower(validationErr.Reason), "certificate") {
			return http.StatusBadRequest, codeInvalidCertificate
		}
		return http.StatusBadRequest, codeValidationFailed
	case errors.As(err, &creationFailedErr):
		return http.StatusInternalServerError, codeServerCreationFailed
	default:
		return http.StatusInternalServerError, codeInternalServerError
	}
}
