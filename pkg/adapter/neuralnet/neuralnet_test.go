package neuralnet

import (
	"bufio"
	"encoding/json"
	"io"
	"testing"
)

func TestPadRowsCyclesFromStart(t *testing.T) {
	rows := [][]float64{{1}, {2}, {3}}
	padded := padRows(rows, 5)
	if len(padded) != 5 {
		t.Fatalf("got %d rows, want 5", len(padded))
	}
	if padded[3][0] != 1 || padded[4][0] != 2 {
		t.Fatalf("expected padding to cycle from the start, got %+v", padded)
	}
}

func TestPadRowsTruncatesOversizedInput(t *testing.T) {
	rows := [][]float64{{1}, {2}, {3}}
	padded := padRows(rows, 2)
	if len(padded) != 2 {
		t.Fatalf("got %d rows, want 2", len(padded))
	}
}

// fakeHost simulates the inference host's line-delimited JSON protocol: it
// reads one predictRequest per line and replies with a batchSize-row
// predictResponse, so Predict's batch-splitting can be exercised without a
// real subprocess.
func fakeHost(t *testing.T, reqR io.Reader, respW io.WriteCloser, batchSize int) {
	t.Helper()
	scanner := bufio.NewScanner(reqR)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var req predictRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			t.Errorf("fake host: unmarshal request: %v", err)
			return
		}
		if len(req.Features) != batchSize {
			t.Errorf("fake host: got %d rows, want fixed batch size %d", len(req.Features), batchSize)
		}
		resp := predictResponse{Probabilities: make([][]float64, batchSize)}
		for i := range resp.Probabilities {
			resp.Probabilities[i] = []float64{float64(i), 1 - float64(i)}
		}
		raw, err := json.Marshal(resp)
		if err != nil {
			t.Errorf("fake host: marshal response: %v", err)
			return
		}
		if _, err := respW.Write(append(raw, '\n')); err != nil {
			return
		}
	}
}

func TestPredictSplitsAcrossMultipleBatches(t *testing.T) {
	const batchSize = 4
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	defer reqW.Close()
	defer respW.Close()

	go fakeHost(t, reqR, respW, batchSize)

	scanner := bufio.NewScanner(respR)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	h := &Handle{
		stdin:     bufio.NewWriter(reqW),
		stdout:    scanner,
		batchSize: batchSize,
	}

	featureMatrix := make([][]float64, 10)
	for i := range featureMatrix {
		featureMatrix[i] = make([]float64, FeatureWidth)
	}

	probs, err := h.Predict(featureMatrix)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(probs) != len(featureMatrix) {
		t.Fatalf("got %d probability rows, want %d (feature count exceeds the fixed batch size of %d)", len(probs), len(featureMatrix), batchSize)
	}
}

func TestPredictSingleBatchUnderBatchSize(t *testing.T) {
	const batchSize = 8
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	defer reqW.Close()
	defer respW.Close()

	go fakeHost(t, reqR, respW, batchSize)

	scanner := bufio.NewScanner(respR)
	h := &Handle{
		stdin:     bufio.NewWriter(reqW),
		stdout:    scanner,
		batchSize: batchSize,
	}

	featureMatrix := [][]float64{make([]float64, FeatureWidth), make([]float64, FeatureWidth)}
	probs, err := h.Predict(featureMatrix)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(probs) != 2 {
		t.Fatalf("got %d probability rows, want 2", len(probs))
	}
}
