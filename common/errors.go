// common/errors.go - Pipeline error taxonomy
package common

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a pipeline failure. Every failure is fatal for the
// pairing it occurred in; only KindConfiguration aborts a whole invocation.
type ErrorKind string

const (
	KindConfiguration ErrorKind = "configuration"
	KindResolution    ErrorKind = "resolution"
	KindCollision     ErrorKind = "collision"
	KindProvisioning  ErrorKind = "provisioning"
	KindAttachment    ErrorKind = "attachment"
	KindPersistence   ErrorKind = "persistence"
)

// PipelineError carries the failure class and the pipeline step that failed.
type PipelineError struct {
	Kind ErrorKind
	Step string // sub-step for diagnosis, e.g. "mount" or "attach"
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("%s error at %s: %v", e.Kind, e.Step, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func newPipelineError(kind ErrorKind, step, format string, args ...interface{}) *PipelineError {
	return &PipelineError{Kind: kind, Step: step, Err: fmt.Errorf(format, args...)}
}

func ConfigurationErr(format string, args ...interface{}) *PipelineError {
	return newPipelineError(KindConfiguration, "", format, args...)
}

func ResolutionErr(format string, args ...interface{}) *PipelineError {
	return newPipelineError(KindResolution, "", format, args...)
}

func CollisionErr(format string, args ...interface{}) *PipelineError {
	return newPipelineError(KindCollision, "", format, args...)
}

// ProvisioningErr reports a disk create/mount/initialize/bind failure with
// the sub-step that failed.
func ProvisioningErr(step, format string, args ...interface{}) *PipelineError {
	return newPipelineError(KindProvisioning, step, format, args...)
}

func AttachmentErr(format string, args ...interface{}) *PipelineError {
	return newPipelineError(KindAttachment, "attach", format, args...)
}

func PersistenceErr(format string, args ...interface{}) *PipelineError {
	return newPipelineError(KindPersistence, "", format, args...)
}

// KindOf returns the classification of err, or "" when err is not a
// pipeline error.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
