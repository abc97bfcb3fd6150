package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeNotFound, Message: "resource not found"},
			want: "resource not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to process",
				Cause:   errors.New("underlying error"),
			},
			want: "failed to process: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, ErrCodeInternal, "wrapped error")

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(Wrap(cause), cause) = false, want true")
	}
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		wantCode  ErrorCode
		wantField string
	}{
		{name: "not found", err: NotFound("Church not found"), wantCode: ErrCodeNotFound},
		{name: "validation", err: Validation("bad input"), wantCode: ErrCodeValidation},
		{name: "validation field", err: ValidationField("name", "required"), wantCode: ErrCodeValidation, wantField: "name"},
		{name: "internal", err: Internal("boom"), wantCode: ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.wantCode)
			}
			if tt.err.Field != tt.wantField {
				t.Errorf("Field = %v, want %v", tt.err.Field, tt.wantField)
			}
		})
	}
}

func TestIsHelpers_WrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("get church: %w", NotFound("Church not found"))

	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should see through fmt.Errorf wrapping")
	}
	if IsConflict(wrapped) || IsValidation(wrapped) || IsInternal(wrapped) || IsTimeout(wrapped) || IsCanceled(wrapped) {
		t.Error("only IsNotFound should match")
	}
	if IsNotFound(errors.New("plain")) {
		t.Error("plain errors are not AppErrors")
	}
	if GetCode(errors.New("plain")) != "" {
		t.Error("GetCode of a plain error should be empty")
	}
	if GetField(fmt.Errorf("x: %w", ValidationField("email", "bad"))) != "email" {
		t.Error("GetField should see through wrapping")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: NotFound("x"), want: http.StatusNotFound},
		{name: "conflict", err: &AppError{Code: ErrCodeConflict}, want: http.StatusConflict},
		{name: "validation", err: Validation("x"), want: http.StatusBadRequest},
		{name: "timeout", err: &AppError{Code: ErrCodeTimeout}, want: http.StatusGatewayTimeout},
		{name: "canceled", err: &AppError{Code: ErrCodeCanceled}, want: 499},
		{name: "internal", err: Internal("x"), want: http.StatusInternalServerError},
		{name: "plain error", err: errors.New("x"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPublicMessage(t *testing.T) {
	if got := PublicMessage(NotFound("Church not found")); got != "Church not found" {
		t.Errorf("PublicMessage() = %q", got)
	}
	if got := PublicMessage(Wrap(errors.New("pq: secret detail"), ErrCodeInternal, "db exploded")); got != "Internal server error" {
		t.Errorf("PublicMessage() leaked internal message: %q", got)
	}
	if got := PublicMessage(errors.New("raw")); got != "Internal server error" {
		t.Errorf("PublicMessage() = %q", got)
	}
}
