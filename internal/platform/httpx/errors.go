package httpx

import (
	"errors"
	"net/http"
)

// ErrorMapping binds a sentinel error to an HTTP status.
type ErrorMapping struct {
	Target error
	Status int
	Title  string
	// Expose controls whether err.Error() is sent as the problem detail.
	Expose bool
}

// RespondError writes the first mapping matched with errors.Is as an RFC 7807
// problem. Unmatched errors become a bare 500 without detail.
func RespondError(w http.ResponseWriter, err error, mappings ...ErrorMapping) {
	for _, m := range mappings {
		if errors.Is(err, m.Target) {
			detail := ""
			if m.Expose {
				detail = err.Error()
			}
			Problem(w, m.Status, m.Title, detail)
			return
		}
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
