// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/dalemusser/jobhub/internal/app/system/limits"
	"github.com/dalemusser/jobhub/internal/domain/errs"
	"go.uber.org/zap"
)

// errorResponse is the body written for every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Write maps err to a status and writes it as JSON. Internal errors are logged
// and replaced by a generic message.
func Write(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status := errs.HTTPStatus(err)
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	resp := errorResponse{Error: errs.Public(err)}
	if errs.KindOf(err) != errs.KindInternal {
		resp.Code = errs.CodeOf(err)
	}
	JSON(w, status, resp)
}

// BadRequest writes a 400 with msg.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: "bad_request"})
}

// Decode reads a JSON body into v. An empty body leaves v untouched.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, limits.MaxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !stderrors.Is(err, io.EOF) {
		return err
	}
	return nil
}
