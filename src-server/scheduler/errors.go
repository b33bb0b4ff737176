package scheduler

import "errors"

var (
	ErrDateParse        = errors.New("no date found in event text")
	ErrPastDate         = errors.New("event date is not in the future")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("no such event")
	ErrCollaborator     = errors.New("collaborator failure")
)

// UserMessage turns an engine error into the short reply shown to the user.
// Internal failures never leak their details.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDateParse):
		return "Couldn't parse the event date/time ¯\\_(ツ)_/¯"
	case errors.Is(err, ErrPastDate):
		return "Events should be in the future ¯\\_(ツ)_/¯"
	case errors.Is(err, ErrPermissionDenied):
		return "You don't have permission to do that ¯\\_(ツ)_/¯"
	case errors.Is(err, ErrNotFound):
		return "Couldn't find that event."
	default:
		return "Something went wrong, please try again later."
	}
}
