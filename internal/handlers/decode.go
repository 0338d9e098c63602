package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
)

var errInvalidBody = errors.New("invalid request body")

// decodeValid decodes a JSON body into T and runs struct validation. The
// returned error message is safe to send to the client.
func decodeValid[T any](r *http.Request) (T, error) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, errInvalidBody
	}
	if err := validateStruct(req); err != nil {
		return req, errors.New(formatValidationError(err))
	}
	return req, nil
}
