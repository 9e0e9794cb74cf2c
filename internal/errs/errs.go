// Package errs defines the failure taxonomy shared by the matching engine.
//
// Configuration errors are fatal at startup, input errors mean the caller sent
// nothing usable, and capability errors mean an external capability (encoder,
// cache storage) failed and the caller may degrade.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindConfig
	KindInput
	KindCapability
)

// Kind sentinels for errors.Is.
var (
	ErrConfig     = errors.New("configuration error")
	ErrInput      = errors.New("input error")
	ErrCapability = errors.New("capability error")
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindInput:
		return "input"
	case KindCapability:
		return "capability"
	default:
		return "internal"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindConfig:
		return ErrConfig
	case KindInput:
		return ErrInput
	case KindCapability:
		return ErrCapability
	default:
		return nil
	}
}

// NoJob marks errors not tied to a job.
const NoJob = -1

// Error carries enough context for the caller to log and map a failure.
type Error struct {
	Kind     Kind
	Stage    string
	Skill    string
	JobIndex int
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Stage != "" {
		b.WriteString(" [")
		b.WriteString(e.Stage)
		b.WriteString("]")
	}
	if e.Skill != "" {
		fmt.Fprintf(&b, " skill=%q", e.Skill)
	}
	if e.JobIndex >= 0 {
		fmt.Fprintf(&b, " job=%d", e.JobIndex)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinel of the error.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Config wraps err as a configuration error raised while loading stage (usually a file).
func Config(stage string, err error) error {
	return &Error{Kind: KindConfig, Stage: stage, JobIndex: NoJob, Err: err}
}

// Input wraps err as an input error.
func Input(stage string, err error) error {
	return &Error{Kind: KindInput, Stage: stage, JobIndex: NoJob, Err: err}
}

// Capability wraps err as a capability error.
func Capability(stage string, err error) error {
	return &Error{Kind: KindCapability, Stage: stage, JobIndex: NoJob, Err: err}
}

// KindOf returns the kind of the first *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
