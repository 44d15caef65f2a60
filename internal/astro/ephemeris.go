package astro

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// EphemerisData is the output of the external ephemeris calculator.
type EphemerisData struct {
	Sunrise         string              `json:"sunrise"`
	Sunset          string              `json:"sunset"`
	RulingAscendant string              `json:"ruling_ascendant"`
	Intervals       []EphemerisInterval `json:"intervals"`
}

// EphemerisInterval is one ascendant window within the day.
type EphemerisInterval struct {
	Time          string             `json:"time"`
	Ascendant     float64            `json:"ascendant"`
	AscendantSign string             `json:"ascendant_sign"`
	Planets       map[string]float64 `json:"planets"`
}

// EphemerisInput is the request payload for the calculator script.
type EphemerisInput struct {
	Date      string  `json:"date"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  float64 `json:"timezone"`
	Sunrise   string  `json:"sunrise,omitempty"`
	Sunset    string  `json:"sunset,omitempty"`
}

// ScriptError carries the exit diagnostics of a failed calculator run.
type ScriptError struct {
	ExitCode int
	Stderr   string
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("astro: ephemeris script exited with code %d: %s", e.ExitCode, strings.TrimSpace(e.Stderr))
}

// EphemerisRunner invokes the Swiss Ephemeris calculator as a subprocess,
// writing the input JSON to stdin and reading the result from stdout.
type EphemerisRunner struct {
	// Command is the interpreter, "python" by default.
	Command string
	// Script is the calculator script path.
	Script string
	// Dir is the working directory for the subprocess.
	Dir string
	// Timeout bounds a single run.
	Timeout time.Duration
}

// NewEphemerisRunner creates a runner for the given script path.
func NewEphemerisRunner(script string) *EphemerisRunner {
	return &EphemerisRunner{
		Command: "python",
		Script:  script,
		Timeout: 60 * time.Second,
	}
}

// Run executes the calculator with the given raw JSON input and returns
// its stdout verbatim. The caller is responsible for interpreting the
// payload; Compute handles the typed case.
func (r *EphemerisRunner) Run(ctx context.Context, input []byte) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	args := []string{}
	if r.Script != "" {
		args = append(args, r.Script)
	}
	cmd := exec.CommandContext(ctx, r.Command, args...)
	cmd.Dir = r.Dir
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("astro: ephemeris script timed out: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ScriptError{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return nil, fmt.Errorf("astro: run ephemeris script: %w", err)
	}

	return stdout.Bytes(), nil
}

// Compute runs the calculator and parses the result.
func (r *EphemerisRunner) Compute(ctx context.Context, input EphemerisInput) (*EphemerisData, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("astro: marshal ephemeris input: %w", err)
	}

	out, err := r.Run(ctx, payload)
	if err != nil {
		return nil, err
	}

	var data EphemerisData
	if err := json.Unmarshal(out, &data); err != nil {
		return nil, fmt.Errorf("astro: parse ephemeris output: %w", err)
	}
	return &data, nil
}
