// Package services defines the business logic above the repository
// layer: license scheduling and validation, monitored-host management,
// and the access-request state machine. This file centralizes common
// service-level error values so that they can be consistently returned
// by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing chat messages is performed in the bot
// router.
package services

import "errors"

// Validation errors reported back to the requesting user. None of them
// leaves any state mutated.
var (
	// ErrInvalidDate is returned when a user-supplied expiry date is
	// not in DD.MM.YYYY form.
	ErrInvalidDate = errors.New("invalid date format, expected DD.MM.YYYY")

	// ErrPastExpiry is returned when the supplied expiry date has
	// already passed.
	ErrPastExpiry = errors.New("expiry date has already passed")

	// ErrDuplicateLicense is returned when an active record with the
	// same (company, product) pair already exists.
	ErrDuplicateLicense = errors.New("license notification already exists for this company and product")

	// ErrNoActionableDates is returned when every candidate
	// notification date lies in the past, so nothing can be scheduled.
	ErrNoActionableDates = errors.New("all notification dates are in the past")

	// ErrLicenseNotFound indicates that the requested license record
	// does not exist.
	ErrLicenseNotFound = errors.New("license notification not found")

	// ErrHostNotFound indicates that the hostname is not being
	// monitored.
	ErrHostNotFound = errors.New("host is not monitored")

	// ErrNoHostnames is returned when a bulk add request contains no
	// usable hostname after normalization.
	ErrNoHostnames = errors.New("no hostnames supplied")

	// ErrRequestNotFound indicates that no pending access request
	// exists for the user.
	ErrRequestNotFound = errors.New("access request not found")
)
