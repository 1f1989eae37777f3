package form

import (
	"fmt"
	"strings"
)

// Mode selects which user interactions trigger validation.
type Mode int

const (
	// OnSubmit validates only when the form is submitted.
	OnSubmit Mode = iota
	// OnBlur validates when a field loses focus.
	OnBlur
	// OnChange validates on every input change.
	OnChange
	// OnTouched validates on the first blur and on every change after it.
	OnTouched
	// All validates on both blur and change.
	All
)

func (m Mode) String() string {
	switch m {
	case OnBlur:
		return "onBlur"
	case OnChange:
		return "onChange"
	case OnTouched:
		return "onTouched"
	case All:
		return "all"
	default:
		return "onSubmit"
	}
}

// ParseMode accepts the names returned by Mode.String, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "onsubmit", "submit":
		return OnSubmit, nil
	case "onblur", "blur":
		return OnBlur, nil
	case "onchange", "change":
		return OnChange, nil
	case "ontouched", "touched":
		return OnTouched, nil
	case "all":
		return All, nil
	default:
		return OnSubmit, fmt.Errorf("form: unknown mode %q", s)
	}
}

type trigger int

const (
	triggerChange trigger = iota
	triggerBlur
)

// validatesOn decides whether an interaction validates a field. Before the
// first submit the mode applies, afterwards the re-validate mode.
func validatesOn(mode, reValidate Mode, submitted, touched bool, t trigger) bool {
	active := mode
	if submitted {
		active = reValidate
	}
	switch active {
	case All:
		return true
	case OnChange:
		return t == triggerChange
	case OnBlur:
		return t == triggerBlur
	case OnTouched:
		if t == triggerBlur {
			return true
		}
		return touched
	default:
		return false
	}
}
