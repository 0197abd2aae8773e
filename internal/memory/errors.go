package memory

import "fmt"

// StorageError reports a failure of the persistent vector store.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s store %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// WriteError reports that a feedback entry could not be committed. It wraps
// either an *llm.ServiceError (embedding failed) or a *StorageError.
type WriteError struct {
	MessageID string
	Err       error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to store feedback for message %s: %v", e.MessageID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
