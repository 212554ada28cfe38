// Package neuralnet adapts the domain-inference model as a scoped handle:
// open(model_path) -> handle, handle.predict(features[N,13]) -> probs[N,2],
// handle.close(). The handle is a shared read-mostly resource reused across
// every per-protein call of the step that owns it.
//
// The model is invoked as an external process rather than through a Go
// machine-learning binding — the example corpus carries no such binding —
// so the open/predict/close lifecycle here wraps one long-lived child
// process that reads feature batches and writes probability batches over a
// structured file protocol, never scraping stdout, consistent with every
// other adapter in this package family.
package neuralnet

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
	"github.com/rschaeff/dpamengine/pkg/toolexec"
)

// FeatureWidth is the fixed per-residue feature vector width the model
// expects.
const FeatureWidth = 13

// ProbabilityWidth is the fixed output width: probability of domain
// boundary, probability of no boundary.
const ProbabilityWidth = 2

// Config locates the adapter's executable and model file.
type Config struct {
	Override        string
	CanonicalPrefix string
	ModelPath       string
	// BatchSize is the fixed row count every predict request is padded to.
	BatchSize int
}

// Adapter discovers and launches the inference host process.
type Adapter struct {
	cfg Config
}

func New(cfg Config) *Adapter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 256
	}
	return &Adapter{cfg: cfg}
}

// CheckAvailability reports whether the inference host executable can be
// discovered.
func (a *Adapter) CheckAvailability() bool {
	return toolexec.CheckAvailability(a.cfg.Override, "DPAM_NEURALNET", a.cfg.CanonicalPrefix, "dpam-infer-host")
}

// Handle is a scoped acquisition of the inference model: one long-lived
// process, line-delimited JSON request/response over its stdin/stdout. The
// handle serializes requests internally since the host framework it wraps is
// not guaranteed to tolerate concurrent calls on one session.
type Handle struct {
	cmd    *exec.Cmd
	stdin  *bufio.Writer
	stdout *bufio.Scanner
	mu     sync.Mutex

	batchSize int
}

// Open starts the inference host process and waits for its ready signal.
func (a *Adapter) Open(ctx context.Context) (*Handle, error) {
	exe, err := toolexec.Discover(a.cfg.Override, "DPAM_NEURALNET", a.cfg.CanonicalPrefix, "dpam-infer-host")
	if err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindToolMissing, err, "discover inference host")
	}

	cmd := exec.CommandContext(ctx, exe, "--model", a.cfg.ModelPath, "--eager=false")
	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindToolFailed, err, "open inference host stdin")
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindToolFailed, err, "open inference host stdout")
	}
	if err := cmd.Start(); err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindToolFailed, err, "start inference host")
	}

	scanner := bufio.NewScanner(stdoutPipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !scanner.Scan() {
		return nil, dpamerrors.New(dpamerrors.KindToolFailed, "inference host exited before signaling ready")
	}
	var ready struct {
		Ready bool `json:"ready"`
	}
	if err := json.Unmarshal(scanner.Bytes(), &ready); err != nil || !ready.Ready {
		return nil, dpamerrors.New(dpamerrors.KindToolFailed, "inference host did not send a ready signal")
	}

	return &Handle{
		cmd:       cmd,
		stdin:     bufio.NewWriter(stdinPipe),
		stdout:    scanner,
		batchSize: a.cfg.BatchSize,
	}, nil
}

// predictRequest/predictResponse are the line-delimited JSON wire shapes.
type predictRequest struct {
	Features [][]float64 `json:"features"`
}

type predictResponse struct {
	Probabilities [][]float64 `json:"probabilities"`
	Error         string      `json:"error,omitempty"`
}

// Predict scores featureMatrix (N rows of FeatureWidth columns each),
// splitting it into fixed-size batches when N exceeds the handle's batch
// size and concatenating each batch's probabilities back into one N-row
// result. Each individual batch is padded with copies of its own rows up to
// the fixed batch size, and the padded outputs are discarded before return.
func (h *Handle) Predict(featureMatrix [][]float64) ([][]float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(featureMatrix)
	if n == 0 {
		return nil, nil
	}
	for _, row := range featureMatrix {
		if len(row) != FeatureWidth {
			return nil, dpamerrors.New(dpamerrors.KindInvariantViolation, fmt.Sprintf("feature row has %d columns, want %d", len(row), FeatureWidth))
		}
	}

	out := make([][]float64, 0, n)
	for start := 0; start < n; start += h.batchSize {
		end := start + h.batchSize
		if end > n {
			end = n
		}
		probs, err := h.predictOneBatch(featureMatrix[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, probs...)
	}
	return out, nil
}

// predictOneBatch sends one request of at most h.batchSize rows, padded up
// to the fixed batch size, and returns its unpadded probabilities.
func (h *Handle) predictOneBatch(rows [][]float64) ([][]float64, error) {
	padded := padRows(rows, h.batchSize)

	req, err := json.Marshal(predictRequest{Features: padded})
	if err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindInvariantViolation, err, "marshal predict request")
	}
	if _, err := h.stdin.Write(append(req, '\n')); err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindToolFailed, err, "write predict request")
	}
	if err := h.stdin.Flush(); err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindToolFailed, err, "flush predict request")
	}

	if !h.stdout.Scan() {
		return nil, dpamerrors.New(dpamerrors.KindToolFailed, "inference host closed the connection mid-predict")
	}
	var resp predictResponse
	if err := json.Unmarshal(h.stdout.Bytes(), &resp); err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindParseError, err, "parse predict response")
	}
	if resp.Error != "" {
		return nil, dpamerrors.New(dpamerrors.KindToolFailed, "inference host reported: "+resp.Error)
	}
	if len(resp.Probabilities) != h.batchSize {
		return nil, dpamerrors.New(dpamerrors.KindInvariantViolation, fmt.Sprintf("predict response has %d rows, want fixed batch size %d", len(resp.Probabilities), h.batchSize))
	}

	return resp.Probabilities[:len(rows)], nil
}

// padRows pads rows with repeated copies of its own rows until it reaches
// size, cycling from the start once the original rows are exhausted.
func padRows(rows [][]float64, size int) [][]float64 {
	if len(rows) >= size {
		return rows[:size]
	}
	padded := make([][]float64, size)
	copy(padded, rows)
	for i := len(rows); i < size; i++ {
		padded[i] = rows[i%len(rows)]
	}
	return padded
}

// Close terminates the inference host process.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd.Process == nil {
		return nil
	}
	_ = h.cmd.Process.Kill()
	_ = h.cmd.Wait()
	return nil
}
