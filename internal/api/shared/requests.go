package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/applytrack/applytrack/internal/domain"
)

// MaxBodyBytes bounds request bodies. CV text and job descriptions are the
// largest fields.
const MaxBodyBytes = 1 << 20

// DecodeJSON decodes the request body into v. Malformed, empty and oversized
// bodies are reported as validation errors on field "body".
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return domain.NewValidationError("body", "must not be empty", nil)
		case errors.As(err, &maxErr):
			return domain.NewValidationError("body", fmt.Sprintf("must not exceed %d bytes", maxErr.Limit), nil)
		default:
			return domain.NewValidationError("body", "must be valid JSON", err)
		}
	}
	return nil
}
