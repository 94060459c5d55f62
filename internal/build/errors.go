package build

import (
	"errors"
	"fmt"

	"github.com/legion-labs/databuild-go/internal/domain"
)

// ErrCompilerNotFound is returned when no registered compiler handles a
// transform required by the compile target.
var ErrCompilerNotFound = errors.New("no compiler registered for transform")

// ErrOutputNotPresent is returned when a compiler did not produce the named
// output the requested path selects.
var ErrOutputNotPresent = errors.New("requested output not present in compilation results")

// CompileError wraps a failure with the path that was being compiled.
// Compilation is all-or-nothing per call: any CompileError aborts the whole
// invocation and nothing after the failure point is persisted.
type CompileError struct {
	Path domain.ResourcePathID
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %v", e.Path, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// DanglingReferenceError reports a compiled reference whose target is not
// part of the compilation output. Linking never silently drops a reference.
type DanglingReferenceError struct {
	From domain.ResourcePathID
	To   domain.ResourcePathID
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("dangling reference %s -> %s", e.From, e.To)
}
