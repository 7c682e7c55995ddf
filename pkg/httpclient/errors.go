package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
)

// maxErrorBody caps how much of an error body is read.
const maxErrorBody = 1 << 20

// backendErrorBody accepts the error shapes the storefront backend emits:
//
//	{"message": "..."}
//	{"error": "..."}
//	{"error": {"code": "...", "message": "..."}}
type backendErrorBody struct {
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Error   json.RawMessage `json:"error"`
}

type nestedError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into a BackendRejection AppError. When the body carries a message it is
// preserved verbatim; otherwise the raw body (or the status text) is used.
//
// The caller should only invoke this when resp.StatusCode indicates an error
// (i.e., not 2xx). The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, endpoint string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", endpoint, resp.StatusCode, err)
	}

	code, message := decodeErrorBody(bodyBytes)
	if message == "" {
		message = strings.TrimSpace(string(bodyBytes))
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return apperrors.BackendRejection(resp.StatusCode, code, message)
}

func decodeErrorBody(body []byte) (code, message string) {
	var parsed backendErrorBody
	if json.Unmarshal(body, &parsed) != nil {
		return "", ""
	}
	code, message = parsed.Code, parsed.Message

	if len(parsed.Error) == 0 {
		return code, message
	}

	var nested nestedError
	if json.Unmarshal(parsed.Error, &nested) == nil && nested.Message != "" {
		if nested.Code != "" {
			code = nested.Code
		}
		return code, nested.Message
	}

	var plain string
	if message == "" && json.Unmarshal(parsed.Error, &plain) == nil {
		message = plain
	}
	return code, message
}
