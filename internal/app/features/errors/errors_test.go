package errors_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ferrors "github.com/dalemusser/jobhub/internal/app/features/errors"
	"github.com/dalemusser/jobhub/internal/domain/errs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrite(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
		logged  bool
	}{
		{"validation", errs.Validation("invalid_email", "bad email"), http.StatusBadRequest, "invalid_email", "bad email", false},
		{"invariant", errs.ErrCannotRemoveOwner, http.StatusConflict, "cannot_remove_owner", errs.ErrCannotRemoveOwner.Message, false},
		{"duplicate", errs.ErrDuplicateEmail, http.StatusConflict, "duplicate_email", errs.ErrDuplicateEmail.Message, false},
		{"not found", errs.ErrInvalidRequest, http.StatusNotFound, "invalid_request", "invalid request", false},
		{"permission", errs.ErrPermissionDenied, http.StatusForbidden, "permission_denied", errs.ErrPermissionDenied.Message, false},
		{"wrapped", fmt.Errorf("approve: %w", errs.ErrInvalidTransition), http.StatusConflict, "invalid_transition", errs.ErrInvalidTransition.Message, false},
		{"internal", fmt.Errorf("mongo: connection reset"), http.StatusInternalServerError, "", "an internal error occurred", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.ErrorLevel)
			rec := httptest.NewRecorder()
			ferrors.Write(rec, httptest.NewRequest("POST", "/requests/x/approve", nil), zap.New(core), tt.err)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var body struct {
				Error string `json:"error"`
				Code  string `json:"code"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.code || body.Error != tt.message {
				t.Errorf("body = %+v, want code %q message %q", body, tt.code, tt.message)
			}
			if strings.Contains(rec.Body.String(), "connection reset") {
				t.Error("internal error detail leaked to the caller")
			}
			if got := logs.Len() > 0; got != tt.logged {
				t.Errorf("logged = %v, want %v", got, tt.logged)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	var v struct {
		Text string `json:"text"`
	}

	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"text":"hello"}`))
	if err := ferrors.Decode(r, &v); err != nil || v.Text != "hello" {
		t.Fatalf("Decode = %v, %+v", err, v)
	}

	r = httptest.NewRequest("POST", "/", strings.NewReader(""))
	if err := ferrors.Decode(r, &v); err != nil {
		t.Errorf("empty body: %v", err)
	}

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"txt":"typo"}`))
	if err := ferrors.Decode(r, &v); err == nil {
		t.Error("unknown field accepted")
	}
}
