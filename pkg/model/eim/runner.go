// Package eim runs Edge Impulse Linux model files (.eim).
//
// An .eim file is a self-contained executable. It is started with the path
// of a unix socket, and then answers JSON requests on that socket: a
// "hello" handshake that describes the model, followed by "classify"
// requests carrying packed pixel features. Each response is a JSON object
// terminated by a NUL byte.
package eim

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/teslashibe/go-snapbooth/internal/log"
	"github.com/teslashibe/go-snapbooth/pkg/model"
)

// Config holds runner configuration.
type Config struct {
	// StartTimeout bounds how long to wait for the runner's socket.
	StartTimeout time.Duration

	// RequestTimeout bounds a single request when the context has no deadline.
	RequestTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		StartTimeout:   10 * time.Second,
		RequestTimeout: 10 * time.Second,
	}
}

// Model types reported by the runner.
const (
	TypeClassification  = "classification"
	TypeObjectDetection = "object_detection"
)

// Runner is a running .eim process and its socket connection.
type Runner struct {
	config Config
	logger *slog.Logger

	cmd    *exec.Cmd
	exited chan struct{}
	tmpDir string

	conn   net.Conn
	reader *bufio.Reader
	nextID int

	info      model.Info
	modelType string

	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// Open starts the model executable at path and performs the handshake.
func Open(ctx context.Context, path string, cfg Config) (*Runner, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrModelLoad, err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: model file not found: %s", model.ErrModelLoad, abs)
	}
	if st.Mode()&0o111 == 0 {
		return nil, fmt.Errorf("%w: %s is not executable (chmod +x)", model.ErrModelLoad, abs)
	}

	// Socket paths are limited to ~100 bytes, so keep the directory short.
	tmpDir, err := os.MkdirTemp("", "eim")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrModelLoad, err)
	}
	socketPath := filepath.Join(tmpDir, "runner.sock")

	cmd := exec.Command(abs, socketPath)
	if err := cmd.Start(); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("%w: start runner: %v", model.ErrModelLoad, err)
	}
	exited := make(chan struct{})
	go func() {
		cmd.Wait()
		close(exited)
	}()

	r := newRunner(cfg)
	r.cmd, r.exited, r.tmpDir = cmd, exited, tmpDir

	conn, err := r.dial(ctx, socketPath)
	if err != nil {
		r.Close()
		return nil, err
	}
	r.attach(conn)

	if err := r.hello(ctx); err != nil {
		r.Close()
		return nil, err
	}
	r.logger.Info("loaded runner",
		"owner", r.info.Owner, "project", r.info.Name,
		"type", r.modelType, "labels", len(r.info.Labels),
		"input", fmt.Sprintf("%dx%dx%d", r.info.InputWidth, r.info.InputHeight, r.info.Channels))
	return r, nil
}

func newRunner(cfg Config) *Runner {
	return &Runner{
		config: cfg,
		logger: log.Component("eim"),
	}
}

// dial waits for the runner to create its socket, then connects.
func (r *Runner) dial(ctx context.Context, socketPath string) (net.Conn, error) {
	deadline := time.Now().Add(r.config.StartTimeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if _, err := os.Stat(socketPath); err == nil {
			var d net.Dialer
			conn, err := d.DialContext(ctx, "unix", socketPath)
			if err != nil {
				return nil, fmt.Errorf("%w: connect runner: %v", model.ErrModelLoad, err)
			}
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: runner did not open its socket within %v", model.ErrModelLoad, r.config.StartTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", model.ErrModelLoad, ctx.Err())
		case <-r.exited:
			return nil, fmt.Errorf("%w: runner exited during startup (%v)", model.ErrModelLoad, r.cmd.ProcessState)
		case <-ticker.C:
		}
	}
}

func (r *Runner) attach(conn net.Conn) {
	r.conn = conn
	r.reader = bufio.NewReader(conn)
	r.nextID = 1
}

type request struct {
	ID       int   `json:"id"`
	Hello    int   `json:"hello,omitempty"`
	Classify []int `json:"classify,omitempty"`
}

type response struct {
	ID              int              `json:"id"`
	Success         bool             `json:"success"`
	Error           string           `json:"error"`
	Project         *projectInfo     `json:"project"`
	ModelParameters *modelParameters `json:"model_parameters"`
	Result          *classifyResult  `json:"result"`
}

type projectInfo struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Owner         string `json:"owner"`
	DeployVersion int    `json:"deploy_version"`
}

type modelParameters struct {
	ImageChannelCount int      `json:"image_channel_count"`
	ImageInputWidth   int      `json:"image_input_width"`
	ImageInputHeight  int      `json:"image_input_height"`
	Labels            []string `json:"labels"`
	LabelCount        int      `json:"label_count"`
	ModelType         string   `json:"model_type"`
	Sensor            int      `json:"sensor"`
}

type classifyResult struct {
	Classification map[string]float64 `json:"classification"`
	BoundingBoxes  []boundingBox      `json:"bounding_boxes"`
}

type boundingBox struct {
	Label  string  `json:"label"`
	Value  float64 `json:"value"`
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

// send writes one request and reads its NUL-terminated response.
// Caller holds r.mu.
func (r *Runner) send(ctx context.Context, req request) (*response, error) {
	if r.conn == nil {
		return nil, model.ErrClosed
	}
	req.ID = r.nextID
	r.nextID++

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(r.config.RequestTimeout)
	}
	r.conn.SetDeadline(deadline)
	defer r.conn.SetDeadline(time.Time{})

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := r.conn.Write(payload); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	raw, err := r.reader.ReadBytes(0)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	raw = raw[:len(raw)-1]

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !resp.Success {
		if resp.Error == "" {
			resp.Error = "runner reported failure"
		}
		return nil, errors.New(resp.Error)
	}
	return &resp, nil
}

func (r *Runner) hello(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	resp, err := r.send(ctx, request{Hello: 1})
	if err != nil {
		return fmt.Errorf("%w: hello: %v", model.ErrModelLoad, err)
	}
	if resp.ModelParameters == nil {
		return fmt.Errorf("%w: hello response without model_parameters", model.ErrModelLoad)
	}

	p := resp.ModelParameters
	if p.ImageInputWidth <= 0 || p.ImageInputHeight <= 0 {
		return fmt.Errorf("%w: not an image model (input %dx%d)", model.ErrModelLoad, p.ImageInputWidth, p.ImageInputHeight)
	}
	channels := p.ImageChannelCount
	if channels != 1 {
		channels = 3
	}
	r.info = model.Info{
		Labels:      p.Labels,
		InputWidth:  p.ImageInputWidth,
		InputHeight: p.ImageInputHeight,
		Channels:    channels,
	}
	if resp.Project != nil {
		r.info.Name = resp.Project.Name
		r.info.Owner = resp.Project.Owner
	}
	r.modelType = p.ModelType
	return nil
}

// Info implements model.Model.
func (r *Runner) Info() model.Info {
	return r.info
}

// ModelType returns "classification" or "object_detection".
func (r *Runner) ModelType() string {
	return r.modelType
}

// Infer implements model.Model.
func (r *Runner) Infer(ctx context.Context, img image.Image) (*model.Output, error) {
	features := Features(img, r.info.InputWidth, r.info.InputHeight, r.info.Channels == 1)

	r.mu.Lock()
	defer r.mu.Unlock()

	resp, err := r.send(ctx, request{Classify: features})
	if errors.Is(err, model.ErrClosed) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInference, err)
	}
	if resp.Result == nil {
		return &model.Output{}, nil
	}

	out := &model.Output{Classification: resp.Result.Classification}
	if resp.Result.BoundingBoxes != nil {
		out.BoundingBoxes = make([]model.BoundingBox, 0, len(resp.Result.BoundingBoxes))
	}
	for _, bb := range resp.Result.BoundingBoxes {
		out.BoundingBoxes = append(out.BoundingBoxes, model.BoundingBox{
			Label:  bb.Label,
			Score:  bb.Value,
			X:      bb.X,
			Y:      bb.Y,
			Width:  bb.Width,
			Height: bb.Height,
		})
	}
	return out, nil
}

// Close stops the runner process and removes its socket directory.
func (r *Runner) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		if r.conn != nil {
			r.closeErr = r.conn.Close()
			r.conn = nil
		}
		if r.cmd != nil && r.cmd.Process != nil {
			select {
			case <-r.exited:
			default:
				r.cmd.Process.Kill()
				<-r.exited
			}
		}
		if r.tmpDir != "" {
			os.RemoveAll(r.tmpDir)
		}
		r.logger.Debug("runner stopped")
	})
	return r.closeErr
}
