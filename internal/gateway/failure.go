package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/spec-kit/asset-gateway/pkg/util"
)

// errorBody accepts both error shapes the backend produces. Fields stay raw so a
// mismatched shape falls through instead of failing the whole decode.
type errorBody struct {
	Error   json.RawMessage `json:"error"`
	Message json.RawMessage `json:"message"`
}

type nestedError struct {
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

// parseFailure normalizes a non-2xx response. Priority: nested error shape, flat message
// shape, raw body text, synthetic status line.
func parseFailure(status int, statusText string, body []byte) *apperrors.DomainError {
	failure := &apperrors.DomainError{Kind: apperrors.KindDomain, HTTPStatus: status}

	var envelope errorBody
	if err := json.Unmarshal(body, &envelope); err == nil {
		var nested nestedError
		if len(envelope.Error) > 0 && json.Unmarshal(envelope.Error, &nested) == nil && nested.Message != "" {
			failure.Message = nested.Message
			failure.Code = rawScalar(nested.Code)
			failure.Details = rawDetails(nested.Details)
			return failure
		}
		var flat string
		if len(envelope.Message) > 0 && json.Unmarshal(envelope.Message, &flat) == nil && flat != "" {
			failure.Message = flat
			return failure
		}
	}

	if strings.TrimSpace(string(body)) != "" {
		failure.Message = string(body)
		return failure
	}

	failure.Message = fmt.Sprintf("HTTP %d: %s", status, statusText)
	return failure
}

// isAuthFailure reports whether the response means the credential was rejected.
func isAuthFailure(status int, message string) bool {
	if status == http.StatusUnauthorized {
		return true
	}
	lower := strings.ToLower(message)
	return strings.Contains(lower, "unauthorized") || strings.Contains(lower, "token failed")
}

// statusText strips the numeric prefix from resp.Status ("404 Not Found").
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

func rawDetails(raw json.RawMessage) map[string]any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var obj map[string]any
	if json.Unmarshal(raw, &obj) == nil {
		return obj
	}
	var value any
	if json.Unmarshal(raw, &value) == nil {
		return map[string]any{"items": value}
	}
	return nil
}
