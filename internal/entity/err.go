package entity

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalid           = errors.New("invalid entity")
	ErrConflict          = errors.New("conflict")
	ErrBusy              = errors.New("deployment already in progress")
	ErrInternal          = errors.New("internal error")
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrNotPaid         = errors.New("order is not paid")
	ErrTemplateMissing = errors.New("template source not found")
	ErrBuildFailed     = errors.New("build failed")
	ErrOutputMissing   = errors.New("static export output not found")
	ErrPublishFailed   = errors.New("publish failed")
	ErrNotDeployed     = errors.New("order item is not deployed")
)
