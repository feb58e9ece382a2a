package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	deverrors "github.com/rehagrip/rehagrip/motor/errors"
)

// ErrResponse is the standard error envelope for the API.
type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	StatusText string `json:"status"`
	ErrorText  string `json:"error,omitempty"`
	Interlock  string `json:"interlock,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request",
		ErrorText:      err.Error(),
	}
}

func ErrRender(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnprocessableEntity,
		StatusText:     "Error rendering response",
		ErrorText:      err.Error(),
	}
}

func ErrUnauthorized(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnauthorized,
		StatusText:     "Unauthorized",
		ErrorText:      err.Error(),
	}
}

func ErrPermissionDenied(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusForbidden,
		StatusText:     "Permission denied",
		ErrorText:      err.Error(),
	}
}

var ErrNotFound = &ErrResponse{
	HTTPStatusCode: http.StatusNotFound,
	StatusText:     "Resource not found",
}

// ErrMotor maps the device error taxonomy onto HTTP statuses: interlock
// rejections conflict with the device state (409), bad parameters are
// unprocessable (422) and storage trouble is the server's fault (500).
func ErrMotor(err error) render.Renderer {
	var interlock deverrors.InterlockError
	if errors.As(err, &interlock) {
		return &ErrResponse{
			Err:            err,
			HTTPStatusCode: http.StatusConflict,
			StatusText:     "Movement rejected",
			ErrorText:      err.Error(),
			Interlock:      interlock.Reason,
		}
	}

	var invalid deverrors.InvalidInputError
	if errors.As(err, &invalid) {
		return &ErrResponse{
			Err:            err,
			HTTPStatusCode: http.StatusUnprocessableEntity,
			StatusText:     "Invalid input",
			ErrorText:      err.Error(),
		}
	}

	var storage deverrors.StorageError
	if errors.As(err, &storage) {
		return &ErrResponse{
			Err:            err,
			HTTPStatusCode: http.StatusInternalServerError,
			StatusText:     "Preset storage failure",
			ErrorText:      err.Error(),
		}
	}

	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "Device error",
		ErrorText:      err.Error(),
	}
}
