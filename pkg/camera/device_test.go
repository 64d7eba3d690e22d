package camera

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

// fakeCapture stands in for a gocv.VideoCapture.
type fakeCapture struct {
	opened bool
	width  float64
	height float64
	frames []gocv.Mat
	closed int
}

func (f *fakeCapture) IsOpened() bool { return f.opened }

func (f *fakeCapture) Read(m *gocv.Mat) bool {
	if len(f.frames) == 0 {
		return false
	}
	f.frames[0].CopyTo(m)
	f.frames = f.frames[1:]
	return true
}

func (f *fakeCapture) Get(prop gocv.VideoCaptureProperties) float64 {
	switch prop {
	case gocv.VideoCaptureFrameWidth:
		return f.width
	case gocv.VideoCaptureFrameHeight:
		return f.height
	}
	return 0
}

func (f *fakeCapture) Close() error {
	f.closed++
	return nil
}

func withOpener(t *testing.T, fn func(index int, cfg Config) (capture, error)) {
	t.Helper()
	orig := openIndex
	openIndex = fn
	t.Cleanup(func() { openIndex = orig })
}

func TestOpen_ProbesAscendingIndices(t *testing.T) {
	var tried []int
	unopened := &fakeCapture{opened: false}
	good := &fakeCapture{opened: true, width: 640, height: 480}

	withOpener(t, func(index int, cfg Config) (capture, error) {
		tried = append(tried, index)
		switch index {
		case 0:
			return nil, errors.New("no such device")
		case 1:
			return unopened, nil
		default:
			return good, nil
		}
	})

	dev, err := Open(DefaultConfig())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer dev.Close()

	if dev.Index() != 2 {
		t.Errorf("Index: got %d, want 2", dev.Index())
	}
	if len(tried) != 3 {
		t.Errorf("tried indices %v, want [0 1 2]", tried)
	}
	if unopened.closed != 1 {
		t.Errorf("unopened capture closed %d times, want 1", unopened.closed)
	}
	if w, h := dev.Size(); w != 640 || h != 480 {
		t.Errorf("Size: got %dx%d, want 640x480", w, h)
	}
}

func TestOpen_NoDevice(t *testing.T) {
	calls := 0
	withOpener(t, func(index int, cfg Config) (capture, error) {
		calls++
		return nil, errors.New("nope")
	})

	_, err := Open(DefaultConfig())
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("Open: got %v, want ErrDeviceUnavailable", err)
	}
	if calls != 5 {
		t.Errorf("probed %d indices, want 5", calls)
	}
}

func TestOpen_SwapDimensions(t *testing.T) {
	withOpener(t, func(index int, cfg Config) (capture, error) {
		return &fakeCapture{opened: true, width: 640, height: 480}, nil
	})

	cfg := DefaultConfig()
	cfg.SwapDimensions = true
	dev, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer dev.Close()

	if w, h := dev.Size(); w != 480 || h != 640 {
		t.Errorf("Size: got %dx%d, want 480x640", w, h)
	}
}

func TestRead(t *testing.T) {
	src := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV8UC3)
	defer src.Close()
	fc := &fakeCapture{opened: true, width: 3, height: 2, frames: []gocv.Mat{src}}
	withOpener(t, func(index int, cfg Config) (capture, error) { return fc, nil })

	dev, err := Open(DefaultConfig())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	f, err := dev.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if f.Width != 3 || f.Height != 2 || len(f.Pix) != 18 {
		t.Errorf("frame: got %dx%d with %d bytes", f.Width, f.Height, len(f.Pix))
	}

	if _, err := dev.Read(); !errors.Is(err, ErrCaptureFailure) {
		t.Errorf("second Read: got %v, want ErrCaptureFailure", err)
	}

	dev.Close()
	dev.Close()
	if fc.closed != 1 {
		t.Errorf("capture closed %d times, want exactly 1", fc.closed)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default", cfg: DefaultConfig()},
		{name: "legacy", cfg: LegacyConfig()},
		{name: "no probing", cfg: Config{MaxDevices: 0}, wantErr: true},
		{name: "width without height", cfg: Config{MaxDevices: 5, Width: 640}, wantErr: true},
		{name: "tiny width", cfg: Config{MaxDevices: 5, Width: 10, Height: 480}, wantErr: true},
		{name: "negative fps", cfg: Config{MaxDevices: 5, Framerate: -1}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			errs := tc.cfg.Validate()
			if (len(errs) > 0) != tc.wantErr {
				t.Errorf("Validate: got %v, wantErr %v", errs, tc.wantErr)
			}
		})
	}
}

func TestPresets(t *testing.T) {
	for _, name := range PresetNames() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Errorf("preset %q missing", name)
			continue
		}
		if errs := cfg.Validate(); len(errs) > 0 {
			t.Errorf("preset %q invalid: %v", name, errs)
		}
	}
	if GetPreset("nope") != nil {
		t.Error("unknown preset should be nil")
	}
}
