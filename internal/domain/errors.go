package domain

import "errors"

var (
	// ErrDuplicateUsername is returned when a registration collides with an
	// existing directory entry (case-insensitive).
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrReservedUsername is returned when someone registers the admin
	// identity as a regular user.
	ErrReservedUsername = errors.New("username is reserved")
	// ErrUserNotFound is returned when a login names an unknown user.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredential is returned on a bad admin access code, or when a
	// privileged entry is used through the plain login path.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrAccessDenied is returned when a non-admin invokes an admin operation.
	ErrAccessDenied = errors.New("access denied")
	// ErrQuizClosed is returned when an attempt is started outside the
	// availability window.
	ErrQuizClosed = errors.New("quiz is closed")
	// ErrQuestionSourceUnavailable indicates the live question provider
	// failed; the fallback wrapper always absorbs it.
	ErrQuestionSourceUnavailable = errors.New("question source unavailable")
	// ErrQuestionNotAnswered is returned when an attempt is advanced before
	// the current question was answered or timed out.
	ErrQuestionNotAnswered = errors.New("current question not answered")
	// ErrAttemptFinished is returned for game operations on a finished attempt.
	ErrAttemptFinished = errors.New("attempt already finished")
)
