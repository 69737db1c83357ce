package layer

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrEmptyInput is returned when a layer stream holds no messages.
var ErrEmptyInput = errors.New("layer stream contains no messages")

// IOError is an open, read or write failure on the underlying storage.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError wraps err as an IOError.
func NewIOError(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}

// CorruptMessageError is a truncated or malformed header or block message.
type CorruptMessageError struct {
	// Message is the zero-based position of the message in the stream, header included.
	Message int
	Reason  string
}

func (e *CorruptMessageError) Error() string {
	return fmt.Sprintf("corrupt message %d: %s", e.Message, e.Reason)
}

// NewCorruptMessageError returns a CorruptMessageError with a formatted reason.
func NewCorruptMessageError(message int, format string, args ...interface{}) error {
	return &CorruptMessageError{Message: message, Reason: fmt.Sprintf(format, args...)}
}

// IncompatibleLayerError is returned when layer metadata disagree on a merge or load.
type IncompatibleLayerError struct {
	Want Header
	Got  Header
}

func (e *IncompatibleLayerError) Error() string {
	return fmt.Sprintf("incompatible layer: want %v, got %v", e.Want, e.Got)
}

// BlockConflictError is returned when a block already exists under the Prohibit strategy.
type BlockConflictError struct {
	Index BlockIndex
}

func (e *BlockConflictError) Error() string {
	return fmt.Sprintf("block %v already exists in layer", e.Index)
}
