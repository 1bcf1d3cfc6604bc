package shift

import "errors"

var (
	ErrAssignmentNotFound      = errors.New("assignment not found")
	ErrNotShiftBased           = errors.New("assignment does not use shift-based attendance")
	ErrShiftAlreadyStarted     = errors.New("shift already in progress for this assignment")
	ErrShiftAlreadyCompleted   = errors.New("shift already completed for this assignment")
	ErrShiftNotStarted         = errors.New("shift has not been started")
	ErrModeChangeNotAllowed    = errors.New("attendance mode can only change before the shift starts")
	ErrShiftTransitionRejected = errors.New("shift state changed concurrently")
)
