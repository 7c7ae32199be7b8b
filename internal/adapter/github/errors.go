package github

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	llmhttp "github.com/l1v0n1/ReviewBuddy/internal/adapter/llm/http"
)

const providerName = "github"

type apiErrorResponse struct {
	Message string `json:"message"`
	Errors  []struct {
		Field   string `json:"field"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// mapHTTPError converts GitHub API error responses into typed errors so the
// shared retry logic can classify them.
func mapHTTPError(statusCode int, body []byte) *llmhttp.Error {
	message := parseErrorMessage(statusCode, body)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &llmhttp.Error{
			Type: llmhttp.ErrTypeAuthentication, Message: message,
			StatusCode: statusCode, Provider: providerName,
		}
	case http.StatusTooManyRequests:
		return &llmhttp.Error{
			Type: llmhttp.ErrTypeRateLimit, Message: message,
			StatusCode: statusCode, Retryable: true, Provider: providerName,
		}
	case http.StatusNotFound, http.StatusUnprocessableEntity:
		return &llmhttp.Error{
			Type: llmhttp.ErrTypeInvalidRequest, Message: message,
			StatusCode: statusCode, Provider: providerName,
		}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return &llmhttp.Error{
			Type: llmhttp.ErrTypeServiceUnavailable, Message: message,
			StatusCode: statusCode, Retryable: true, Provider: providerName,
		}
	default:
		return &llmhttp.Error{
			Type: llmhttp.ErrTypeUnknown, Message: message,
			StatusCode: statusCode, Provider: providerName,
		}
	}
}

func parseErrorMessage(statusCode int, body []byte) string {
	var errResp apiErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Message == "" {
		preview := string(body)
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		if preview == "" {
			return fmt.Sprintf("HTTP %d", statusCode)
		}
		return fmt.Sprintf("HTTP %d: %s", statusCode, preview)
	}

	if len(errResp.Errors) > 0 {
		var details []string
		for _, e := range errResp.Errors {
			switch {
			case e.Message != "":
				details = append(details, e.Message)
			case e.Field != "":
				details = append(details, fmt.Sprintf("%s: %s", e.Field, e.Code))
			}
		}
		if len(details) > 0 {
			return fmt.Sprintf("%s: %s", errResp.Message, strings.Join(details, "; "))
		}
	}
	return errResp.Message
}
