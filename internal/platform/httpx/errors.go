package httpx

import (
	"net/http"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RespondError maps tagged domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch shared.KindOf(err) {
	case shared.KindNotFound:
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case shared.KindBusinessRule:
		Problem(w, http.StatusConflict, "Business Rule Violation", err.Error())
	case shared.KindValidation:
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
