package dto

// Pagination metadata, computed server-side and passed through unchanged.
type Pagination struct {
	CurrentPage  int `json:"current_page"`
	PerPage      int `json:"per_page"`
	TotalRecords int `json:"total_records"`
	TotalPages   int `json:"total_pages"`
	StartRecord  int `json:"start_record"`
	EndRecord    int `json:"end_record"`
}

// DataEnvelope wraps a single entity read.
type DataEnvelope[T any] struct {
	Data T `json:"data"`
}

// PageEnvelope wraps a list read.
type PageEnvelope[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// MessageEnvelope wraps a write response.
type MessageEnvelope[T any] struct {
	Message string `json:"message"`
	Data    *T     `json:"data,omitempty"`
}

// ErrorDetail is the nested error shape.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the primary error body: {"error":{...}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// FlatErrorResponse is the secondary error body some resources answer with: {"message":...}.
type FlatErrorResponse struct {
	Message string `json:"message"`
}
