package binance

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdkhttp "github.com/betbot/futurebot/pkg/sdk/http"
)

// APIError is a rejection returned by the exchange: HTTP status plus the
// exchange's own error code and message.
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance api error: status=%d code=%d msg=%s", e.StatusCode, e.Code, e.Message)
}

// Common exchange error codes.
const (
	CodeTimestampOutsideRecvWindow = -1021
	CodeInvalidSymbol              = -1121
	CodeUnknownOrder               = -2011
	CodeNoSuchOrder                = -2013
	CodeInsufficientMargin         = -2019
)

// IsAPIError extracts an *APIError from err.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// toAPIError converts a transport-level non-2xx into an *APIError when the body
// carries the exchange's {"code","msg"} envelope.
func toAPIError(err error) error {
	var httpErr *sdkhttp.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}
	apiErr := &APIError{StatusCode: httpErr.StatusCode}
	if jsonErr := json.Unmarshal(httpErr.Body, apiErr); jsonErr != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(httpErr.Body))
		if apiErr.Message == "" {
			apiErr.Message = httpErr.Status
		}
	}
	return apiErr
}
