package intent

import (
	"fmt"
	"strings"

	apperr "github.com/ggonzalez94/swapsage/internal/errors"
)

type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusQuoted   Status = "QUOTED"
	StatusExecuted Status = "EXECUTED"
	StatusFailed   Status = "FAILED"
)

// transitions lists every permitted status change. EXECUTED and FAILED are terminal.
var transitions = map[Status][]Status{
	StatusDraft:  {StatusQuoted, StatusFailed},
	StatusQuoted: {StatusExecuted, StatusFailed},
}

func ParseStatus(input string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(input)))
	switch s {
	case StatusDraft, StatusQuoted, StatusExecuted, StatusFailed:
		return s, nil
	default:
		return "", apperr.New(apperr.CodeValidation, fmt.Sprintf("unknown intent status %q", input))
	}
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	return apperr.New(apperr.CodeIllegalTransition, fmt.Sprintf("illegal status transition %s -> %s", from, to))
}
