package handler

import (
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

type Response struct {
	Status    string                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Data      interface{}            `json:"data,omitempty"`
	Errors    []apperrors.FieldError `json:"errors,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

// NewMessageResponse is a success response carrying a banner message.
func NewMessageResponse(message string, data interface{}) *Response {
	return &Response{
		Status:  "success",
		Message: message,
		Data:    data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// NewAppErrorResponse renders an application error with its field errors.
func NewAppErrorResponse(err *apperrors.AppError) *Response {
	return &Response{
		Status:  "error",
		Message: err.Message,
		Errors:  err.Fields,
	}
}

// WithRequestID stamps an error envelope so callers can quote it.
func (r *Response) WithRequestID(id string) *Response {
	r.RequestID = id
	return r
}
