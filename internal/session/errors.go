package session

import "fmt"

// NotFoundError is returned when a message id is not in the session's
// current message set.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("email %s not found", e.ID)
}
