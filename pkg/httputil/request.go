package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
)

// DecodeJSON decodes exactly one JSON value from the request body into
// dest. Failures are returned as *Error: 413 when the body exceeded the
// MaxBytesMiddleware limit, 400 otherwise.
func DecodeJSON(r *http.Request, dest any) error {
	return decode(json.NewDecoder(r.Body), dest)
}

// DecodeJSONNumbers is DecodeJSON keeping numbers as json.Number, so 64-bit
// integers in untyped documents are not rounded through float64.
func DecodeJSONNumbers(r *http.Request, dest any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return decode(dec, dest)
}

func decode(dec *json.Decoder, dest any) error {
	if err := dec.Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return Errorf(http.StatusRequestEntityTooLarge, "request body exceeds %d bytes", tooLarge.Limit)
		case errors.Is(err, io.EOF):
			return Errorf(http.StatusBadRequest, "request body is empty")
		default:
			return Errorf(http.StatusBadRequest, "invalid JSON: %v", err)
		}
	}
	if dec.More() {
		return Errorf(http.StatusBadRequest, "invalid JSON: unexpected data after the first value")
	}
	return nil
}

// PathVar returns a route variable, or a 400 *Error when it is empty
func PathVar(r *http.Request, key string) (string, error) {
	v := mux.Vars(r)[key]
	if v == "" {
		return "", Errorf(http.StatusBadRequest, "missing path parameter: %s", key)
	}
	return v, nil
}
