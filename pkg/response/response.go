package response

// Response represents a standard API response format
type Response struct {
	Status     string            `json:"status"`      // "success", "invalid" or "error"
	StatusCode int               `json:"status_code"` // HTTP status code
	Data       interface{}       `json:"data,omitempty"`
	Error      string            `json:"error,omitempty"`
	Code       string            `json:"code,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// Paged wraps a list payload with its pagination metadata.
type Paged struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// ValidationFailed carries field-level errors keyed by field path.
func ValidationFailed(statusCode int, code, message string, fields map[string]string) Response {
	return Response{
		Status:     "invalid",
		StatusCode: statusCode,
		Error:      message,
		Code:       code,
		Fields:     fields,
	}
}

// Failed is a domain failure with a machine readable code.
func Failed(statusCode int, code, message string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      message,
		Code:       code,
	}
}
