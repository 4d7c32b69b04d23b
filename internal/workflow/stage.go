// Package workflow is the authoring session: the stage machine that moves a
// project from its idea to a previewable storyboard.
package workflow

import (
	"errors"
	"fmt"
)

// Stage is one step of the linear authoring workflow.
type Stage int

const (
	StageInput Stage = iota
	StageScripting
	StageMedia
	StagePreview
)

func (s Stage) String() string {
	switch s {
	case StageInput:
		return "input"
	case StageScripting:
		return "scripting"
	case StageMedia:
		return "media"
	case StagePreview:
		return "preview"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

type Event string

const (
	EventScriptGenerated Event = "generateScriptSucceeded"
	EventNext            Event = "next"
	EventComplete        Event = "complete"
	EventBack            Event = "back"
)

// ErrInvalidTransition matches every *TransitionError.
var ErrInvalidTransition = errors.New("invalid stage transition")

type TransitionError struct {
	From  Stage
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("[%s] %s: event not allowed", e.From, e.Event)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// transition is the stage table. Only adjacent moves exist; back is
// available from every stage but the first.
func transition(from Stage, ev Event) (Stage, error) {
	switch {
	case ev == EventScriptGenerated && from == StageInput:
		return StageScripting, nil
	case ev == EventNext && from == StageScripting:
		return StageMedia, nil
	case ev == EventComplete && from == StageMedia:
		return StagePreview, nil
	case ev == EventBack && from > StageInput && from <= StagePreview:
		return from - 1, nil
	}
	return from, &TransitionError{From: from, Event: ev}
}
