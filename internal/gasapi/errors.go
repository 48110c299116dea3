package gasapi

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"

	gmerrors "github.com/gas-mcp/gas-mcp-server/internal/errors"
)

// translateError maps a googleapi.Error's HTTP status to the Core's
// typed taxonomy. Non-googleapi errors (context deadline, network
// failures) are treated as transient so the retry wrapper gets a chance.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return gmerrors.New(gmerrors.CodeTransient, op+" failed", err)
	}

	switch apiErr.Code {
	case http.StatusUnauthorized:
		return gmerrors.New(gmerrors.CodeAuth, op+" failed: unauthorized", apiErr)
	case http.StatusForbidden:
		return gmerrors.New(gmerrors.CodePermission, op+" failed: forbidden", apiErr)
	case http.StatusNotFound:
		return gmerrors.New(gmerrors.CodeNotFound, op+" failed: not found", apiErr)
	case http.StatusConflict, http.StatusPreconditionFailed:
		return gmerrors.New(gmerrors.CodeConflict, op+" failed: conflict", apiErr)
	case http.StatusTooManyRequests:
		return gmerrors.New(gmerrors.CodeQuota, op+" failed: rate limited", apiErr).WithRecoverable(true)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout, http.StatusInternalServerError:
		return gmerrors.New(gmerrors.CodeTransient, op+" failed: upstream unavailable", apiErr)
	default:
		return gmerrors.New(gmerrors.CodeInternal, op+" failed: unexpected status", apiErr).
			WithContext("status", apiErr.Code)
	}
}
