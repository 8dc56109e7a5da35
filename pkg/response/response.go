package response

import "agromed-backend/pkg/apperrors"

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	ErrorCode  string      `json:"error_code,omitempty"` // taxonomy kind, e.g. INSUFFICIENT_STOCK
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

// FromError maps an application error onto the HTTP status and error code
// of its taxonomy kind, so the wizard client sees the specific failing
// precondition rather than a generic failure.
func FromError(err error) (int, Response) {
	status := apperrors.HTTPStatus(err)
	resp := Response{
		Status:     "error",
		StatusCode: status,
		Error:      err.Error(),
		ErrorCode:  string(apperrors.KindOf(err)),
	}
	return status, resp
}
