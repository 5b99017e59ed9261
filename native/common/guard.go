package common

import "errors"

// ErrModulePaused is returned when a mutating operation reaches a module the
// operator has frozen.
var ErrModulePaused = errors.New("module paused")

// PauseView answers whether a named module is currently frozen.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the module is paused. A nil view means pausing
// is not configured and every call proceeds.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
