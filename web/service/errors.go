package service

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrComplaintNotFound = errors.New("complaint not found")
	ErrInvalidStatus     = errors.New("invalid complaint status")
	ErrEmptyIssue        = errors.New("issue is required")
	ErrUpstream          = errors.New("map service failure")
)
