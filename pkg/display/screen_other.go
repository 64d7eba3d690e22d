//go:build !linux

package display

import "errors"

// ScreenSize is only implemented for the Linux framebuffer.
func ScreenSize() (width, height int, err error) {
	return 0, 0, errors.New("display: screen size query not supported on this platform")
}
