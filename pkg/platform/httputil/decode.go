package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "kiosk-gateway/pkg/domain-errors"
)

// Validatable is implemented by request types that check their own shape.
type Validatable interface {
	Validate() error
}

// Normalizable is implemented by request types that trim or default fields.
type Normalizable interface {
	Normalize()
}

// PrepareRequest normalizes and then validates req.
func PrepareRequest(req any) error {
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	if v, ok := req.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// Decode reads a JSON body into T and prepares it. The returned error is
// always a domain error; handlers pick the envelope to render it in.
//
// Usage:
//
//	req, err := httputil.Decode[QueryRequest](r)
//	if err != nil {
//	    writeEnvelope(w, http.StatusBadRequest, err.Error())
//	    return
//	}
func Decode[T any](r *http.Request) (*T, error) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	if err := PrepareRequest(&req); err != nil {
		var domainErr *dErrors.Error
		if errors.As(err, &domainErr) {
			return &req, err
		}
		return &req, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	return &req, nil
}
