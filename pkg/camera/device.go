package camera

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-snapbooth/internal/log"
	"github.com/teslashibe/go-snapbooth/pkg/frame"
	"gocv.io/x/gocv"
)

var (
	// ErrDeviceUnavailable is returned when no probed index opens.
	ErrDeviceUnavailable = errors.New("camera: no available capture device")

	// ErrCaptureFailure is returned when a read yields no frame.
	ErrCaptureFailure = errors.New("camera: failed to grab frame")
)

// capture is the part of gocv.VideoCapture the device uses.
type capture interface {
	IsOpened() bool
	Read(m *gocv.Mat) bool
	Get(prop gocv.VideoCaptureProperties) float64
	Close() error
}

// openIndex opens one device index and applies the requested mode.
// Swapped in tests.
var openIndex = func(index int, cfg Config) (capture, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		if vc != nil {
			vc.Close()
		}
		return nil, err
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.Framerate > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	}
	return vc, nil
}

// Device is an open capture device.
type Device struct {
	vc     capture
	index  int
	width  int
	height int
	mat    gocv.Mat
	logger *slog.Logger

	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// Open probes indices 0..MaxDevices-1 and returns the first that opens.
// Trial-opening is not enumeration; kiosks have a single camera.
func Open(cfg Config) (*Device, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("camera: invalid config: %v", errs)
	}
	logger := log.Component("camera")

	for i := 0; i < cfg.MaxDevices; i++ {
		vc, err := openIndex(i, cfg)
		if err != nil {
			logger.Debug("device did not open", "index", i, "error", err)
			continue
		}
		if !vc.IsOpened() {
			vc.Close()
			continue
		}

		w := int(vc.Get(gocv.VideoCaptureFrameWidth))
		h := int(vc.Get(gocv.VideoCaptureFrameHeight))
		if cfg.SwapDimensions {
			w, h = h, w
		}
		logger.Info("using camera device", "index", i, "width", w, "height", h)

		return &Device{
			vc:     vc,
			index:  i,
			width:  w,
			height: h,
			mat:    gocv.NewMat(),
			logger: logger,
		}, nil
	}
	return nil, fmt.Errorf("%w (tried indices 0-%d)", ErrDeviceUnavailable, cfg.MaxDevices-1)
}

// Index returns the device index that opened.
func (d *Device) Index() int {
	return d.index
}

// Size returns the frame size reported by the driver when the device opened.
func (d *Device) Size() (width, height int) {
	return d.width, d.height
}

// Read blocks until the next frame is available. There is no timeout.
func (d *Device) Read() (*frame.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ok := d.vc.Read(&d.mat); !ok || d.mat.Empty() {
		return nil, ErrCaptureFailure
	}
	return matToFrame(d.mat)
}

// matToFrame copies an 8-bit Mat into a BGR frame.
func matToFrame(m gocv.Mat) (*frame.Frame, error) {
	src := m
	switch m.Channels() {
	case 3:
	case 1, 4:
		conv := gocv.NewMat()
		defer conv.Close()
		code := gocv.ColorGrayToBGR
		if m.Channels() == 4 {
			code = gocv.ColorBGRAToBGR
		}
		gocv.CvtColor(m, &conv, code)
		src = conv
	default:
		return nil, fmt.Errorf("%w: unsupported channel count %d", ErrCaptureFailure, m.Channels())
	}

	f, err := frame.New(src.Cols(), src.Rows(), frame.BGR, src.ToBytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailure, err)
	}
	return f, nil
}

// Close releases the device. Safe to call more than once.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.mat.Close()
		d.closeErr = d.vc.Close()
		d.logger.Debug("camera released", "index", d.index)
	})
	return d.closeErr
}
