package embed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
)

// classifyStatus maps a non-success HTTP status to a provider error:
// 429 and 5xx are transient, every other status is a rejection.
func classifyStatus(provider string, status int, body string) error {
	msg := fmt.Sprintf("%s returned status %d", provider, status)
	if body != "" {
		msg += ": " + truncate(body, 200)
	}

	var code string
	switch {
	case status == http.StatusTooManyRequests:
		code = amerrors.ErrCodeProviderRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		code = amerrors.ErrCodeProviderTimeout
	case status >= 500:
		code = amerrors.ErrCodeProviderUnavailable
	default:
		code = amerrors.ErrCodeProviderRejected
	}
	return amerrors.New(code, msg, nil).WithDetail("status", fmt.Sprint(status))
}

// classifyTransport maps a request error. Cancellation of the caller's
// context is returned unchanged so it is never retried.
func classifyTransport(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return amerrors.New(amerrors.ErrCodeProviderTimeout,
			fmt.Sprintf("%s request timed out", provider), err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return amerrors.New(amerrors.ErrCodeProviderTimeout,
			fmt.Sprintf("%s request timed out", provider), err)
	}
	return amerrors.New(amerrors.ErrCodeProviderUnavailable,
		fmt.Sprintf("%s unreachable", provider), err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
