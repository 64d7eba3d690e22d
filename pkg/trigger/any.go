package trigger

import "errors"

// Source is the capability shared by every trigger.
type Source interface {
	Poll()
	Pending() bool
	Clear()
	QuitRequested() bool
	Close() error
}

// Any combines several sources: pending when any is pending, quitting
// when any asks to quit. Used when a kiosk has both a button and a keyboard.
type Any []Source

// Poll polls every source.
func (a Any) Poll() {
	for _, s := range a {
		s.Poll()
	}
}

// Pending reports whether any source has a pending trigger.
func (a Any) Pending() bool {
	for _, s := range a {
		if s.Pending() {
			return true
		}
	}
	return false
}

// Clear clears every source.
func (a Any) Clear() {
	for _, s := range a {
		s.Clear()
	}
}

// QuitRequested reports whether any source requested shutdown.
func (a Any) QuitRequested() bool {
	for _, s := range a {
		if s.QuitRequested() {
			return true
		}
	}
	return false
}

// Close closes every source and joins the errors.
func (a Any) Close() error {
	var errs []error
	for _, s := range a {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
