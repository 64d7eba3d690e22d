//go:build linux

package display

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// FramebufferDevice is queried for the screen size.
var FramebufferDevice = "/dev/fb0"

const fbioGetVScreenInfo = 0x4600

// fbVarScreenInfo mirrors the head of struct fb_var_screeninfo; the tail
// is padding so the kernel can write the whole struct.
type fbVarScreenInfo struct {
	XRes, YRes               uint32
	XResVirtual, YResVirtual uint32
	_                        [36]uint32
}

// ScreenSize reads the visible resolution of the framebuffer.
func ScreenSize() (width, height int, err error) {
	fd, err := unix.Open(FramebufferDevice, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("display: open %s: %w", FramebufferDevice, err)
	}
	defer unix.Close(fd)

	var info fbVarScreenInfo
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), fbioGetVScreenInfo, uintptr(unsafe.Pointer(&info)))
	if errno != 0 {
		return 0, 0, fmt.Errorf("display: FBIOGET_VSCREENINFO: %w", errno)
	}
	if info.XRes == 0 || info.YRes == 0 {
		return 0, 0, fmt.Errorf("display: framebuffer reports %dx%d", info.XRes, info.YRes)
	}
	return int(info.XRes), int(info.YRes), nil
}
