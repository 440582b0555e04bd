package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/funnelgraph/internal/core"
	"github.com/agenthands/funnelgraph/internal/core/model"
)

type apiError struct {
	status int
	code   string
	err    error
}

func (e *apiError) Error() string { return e.err.Error() }
func (e *apiError) Unwrap() error { return e.err }

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func badRequest(err error) *apiError {
	return &apiError{status: http.StatusBadRequest, code: "bad_request", err: err}
}

// classify maps domain sentinels onto HTTP statuses.
func classify(err error) *apiError {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, model.ErrNotFound):
		return &apiError{status: http.StatusNotFound, code: "not_found", err: err}
	case errors.Is(err, model.ErrPreconditionNotMet):
		return &apiError{status: http.StatusConflict, code: "precondition_not_met", err: err}
	case errors.Is(err, model.ErrInvalidNode), errors.Is(err, model.ErrUnknownAction), errors.Is(err, core.ErrUnknownView):
		return badRequest(err)
	case errors.Is(err, model.ErrDuplicateNode), errors.Is(err, model.ErrRootExists):
		return &apiError{status: http.StatusConflict, code: "conflict", err: err}
	case errors.Is(err, model.ErrServiceFailure), errors.Is(err, model.ErrEmptyResult):
		return &apiError{status: http.StatusBadGateway, code: "generation_failed", err: err}
	case errors.Is(err, model.ErrExportDisabled):
		return &apiError{status: http.StatusServiceUnavailable, code: "export_disabled", err: err}
	}
	return &apiError{status: http.StatusInternalServerError, code: "internal", err: err}
}

func respondError(c *gin.Context, err error) {
	ae := classify(err)
	var body errorBody
	body.Error.Code = ae.code
	body.Error.Message = ae.err.Error()
	if ae.code == "generation_failed" {
		body.Error.Message = "generation failed: " + ae.err.Error()
	}
	c.AbortWithStatusJSON(ae.status, body)
}
