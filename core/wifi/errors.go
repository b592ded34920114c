package wifi

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials marks credentials that cannot be applied at all.
// It is raised before the radio is touched.
var ErrInvalidCredentials = errors.New("invalid wifi credentials")

// Per-stage sentinels; a StageError matches the one for its stage with
// errors.Is.
var (
	ErrInit    = errors.New("wifi init failed")
	ErrConfig  = errors.New("wifi configuration failed")
	ErrStart   = errors.New("wifi start failed")
	ErrAssoc   = errors.New("wifi association failed")
	ErrAddress = errors.New("wifi address assignment failed")
)

// Stage is a step of the connection sequence.
type Stage int

const (
	StageUnconfigured Stage = iota
	StageConfiguring
	StageStarting
	StageAssociating
	StageAddressPending
	StageReachable
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageUnconfigured:
		return "unconfigured"
	case StageConfiguring:
		return "configuring"
	case StageStarting:
		return "starting"
	case StageAssociating:
		return "associating"
	case StageAddressPending:
		return "address-pending"
	case StageReachable:
		return "reachable"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

func (s Stage) sentinel() error {
	switch s {
	case StageUnconfigured:
		return ErrInit
	case StageConfiguring:
		return ErrConfig
	case StageStarting:
		return ErrStart
	case StageAssociating:
		return ErrAssoc
	case StageAddressPending:
		return ErrAddress
	default:
		return nil
	}
}

// StageError is the failure of one stage of the sequence.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	if s := e.Stage.sentinel(); s != nil {
		return fmt.Sprintf("%v: %v", s, e.Err)
	}
	return fmt.Sprintf("wifi %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Is matches the sentinel of the failed stage.
func (e *StageError) Is(target error) bool {
	s := e.Stage.sentinel()
	return s != nil && target == s
}

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
