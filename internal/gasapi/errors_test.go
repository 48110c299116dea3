package gasapi

import (
	"context"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"

	gmerrors "github.com/gas-mcp/gas-mcp-server/internal/errors"
)

func TestTranslateErrorMapsStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		want   gmerrors.ErrorCode
	}{
		{http.StatusUnauthorized, gmerrors.CodeAuth},
		{http.StatusForbidden, gmerrors.CodePermission},
		{http.StatusNotFound, gmerrors.CodeNotFound},
		{http.StatusConflict, gmerrors.CodeConflict},
		{http.StatusTooManyRequests, gmerrors.CodeQuota},
		{http.StatusServiceUnavailable, gmerrors.CodeTransient},
		{http.StatusTeapot, gmerrors.CodeInternal},
	}

	for _, tc := range cases {
		err := translateError("updateFile", &googleapi.Error{Code: tc.status})
		ge := gmerrors.As(err)
		if ge.Code != tc.want {
			t.Errorf("status %d: got code %q, want %q", tc.status, ge.Code, tc.want)
		}
	}
}

func TestTranslateErrorNonAPIErrorIsTransient(t *testing.T) {
	err := translateError("listContent", context.DeadlineExceeded)
	ge := gmerrors.As(err)
	if ge.Code != gmerrors.CodeTransient {
		t.Errorf("expected non-googleapi error to classify as transient, got %q", ge.Code)
	}
}

func TestTranslateErrorQuotaIsRecoverable(t *testing.T) {
	err := translateError("updateFile", &googleapi.Error{Code: http.StatusTooManyRequests})
	ge := gmerrors.As(err)
	if !ge.Recoverable {
		t.Error("expected quota errors to be marked recoverable for the retry layer")
	}
}
