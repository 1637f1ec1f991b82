package errors

import (
	"errors"
	"net/http"
)

// MapError converts a technical error into a user-friendly AppError.
func MapError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return &AppError{
			TechnicalMessage: valErr.Error(),
			UserMessage:      MsgInvalidParameters,
			Code:             ErrCodeInvalidParameters,
			HTTPStatus:       http.StatusBadRequest,
			OriginalError:    err,
		}
	}

	var curErr *CursorInvalidError
	if errors.As(err, &curErr) {
		return &AppError{
			TechnicalMessage: curErr.Error(),
			UserMessage:      MsgCursorInvalid,
			Code:             ErrCodeCursorInvalid,
			HTTPStatus:       http.StatusGone,
			OriginalError:    err,
		}
	}

	switch {
	case errors.Is(err, ErrIndexUnavailable):
		return &AppError{
			TechnicalMessage: err.Error(),
			UserMessage:      MsgIndexUnavailable,
			Code:             ErrCodeIndexUnavailable,
			HTTPStatus:       http.StatusServiceUnavailable,
			OriginalError:    err,
		}
	case errors.Is(err, ErrListingNotFound):
		return &AppError{
			TechnicalMessage: err.Error(),
			UserMessage:      MsgListingNotFound,
			Code:             ErrCodeListingNotFound,
			HTTPStatus:       http.StatusNotFound,
			OriginalError:    err,
		}
	default:
		return &AppError{
			TechnicalMessage: err.Error(),
			UserMessage:      MsgInternalError,
			Code:             ErrCodeInternal,
			HTTPStatus:       http.StatusInternalServerError,
			OriginalError:    err,
		}
	}
}
