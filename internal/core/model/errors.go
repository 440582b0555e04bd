package model

import "errors"

var (
	ErrNotFound           = errors.New("node not found")
	ErrPreconditionNotMet = errors.New("precondition not met")
	ErrServiceFailure     = errors.New("generation service failure")
	ErrEmptyResult        = errors.New("generation returned no data")
	ErrDuplicateNode      = errors.New("node already exists")
	ErrRootExists         = errors.New("campaign already has a root node")
	ErrInvalidNode        = errors.New("invalid node")
)

var (
	ErrUnknownAction  = errors.New("unknown action")
	ErrExportDisabled = errors.New("graph export is not configured")
)
