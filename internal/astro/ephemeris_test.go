package astro

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeScript drops a shell script into a temp dir so tests can stand in
// for the real calculator.
func writeScript(t *testing.T, body string) *EphemerisRunner {
	t.Helper()

	path := filepath.Join(t.TempDir(), "calc.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	return &EphemerisRunner{
		Command: "sh",
		Script:  path,
		Timeout: 10 * time.Second,
	}
}

func TestRunEchoesStdout(t *testing.T) {
	r := writeScript(t, "cat")

	input := []byte(`{"date":"1990-05-15","latitude":-15.4}`)
	out, err := r.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(out) != string(input) {
		t.Errorf("stdout = %q, want input echoed back", out)
	}
}

func TestRunReportsExitCodeAndStderr(t *testing.T) {
	r := writeScript(t, "echo 'swisseph: missing ephemeris files' >&2; exit 3")

	_, err := r.Run(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error")
	}

	var scriptErr *ScriptError
	if !errors.As(err, &scriptErr) {
		t.Fatalf("err = %v, want *ScriptError", err)
	}
	if scriptErr.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", scriptErr.ExitCode)
	}
	if !strings.Contains(scriptErr.Stderr, "missing ephemeris files") {
		t.Errorf("stderr = %q", scriptErr.Stderr)
	}
}

func TestRunTimeout(t *testing.T) {
	r := writeScript(t, "sleep 5")
	r.Timeout = 100 * time.Millisecond

	_, err := r.Run(context.Background(), nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("err = %v, want timeout", err)
	}
}

func TestRunMissingCommand(t *testing.T) {
	r := &EphemerisRunner{Command: "definitely-not-a-real-binary", Timeout: time.Second}

	_, err := r.Run(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error for missing command")
	}
	var scriptErr *ScriptError
	if errors.As(err, &scriptErr) {
		t.Errorf("missing command must not be a ScriptError: %v", err)
	}
}

func TestComputeParsesOutput(t *testing.T) {
	r := writeScript(t, `cat > /dev/null; echo '{"sunrise":"5:49 AM","sunset":"6:02 PM","ruling_ascendant":"Taurus","intervals":[{"time":"5:49 AM","ascendant":42.5,"ascendant_sign":"Taurus","planets":{"sun":54.2,"moon":120.9}}]}'`)

	data, err := r.Compute(context.Background(), EphemerisInput{
		Date:      "1990-05-15",
		Latitude:  -15.4,
		Longitude: 28.3,
		Timezone:  2,
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if data.RulingAscendant != "Taurus" {
		t.Errorf("ruling_ascendant = %q", data.RulingAscendant)
	}
	if len(data.Intervals) != 1 {
		t.Fatalf("intervals = %d, want 1", len(data.Intervals))
	}
	iv := data.Intervals[0]
	if iv.AscendantSign != "Taurus" || iv.Ascendant != 42.5 {
		t.Errorf("interval = %+v", iv)
	}
	if iv.Planets["moon"] != 120.9 {
		t.Errorf("planets = %+v", iv.Planets)
	}
}

func TestComputeRejectsMalformedOutput(t *testing.T) {
	r := writeScript(t, `cat > /dev/null; echo 'Traceback (most recent call last):'`)

	_, err := r.Compute(context.Background(), EphemerisInput{Date: "1990-05-15"})
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "parse ephemeris output") {
		t.Errorf("err = %v", err)
	}
}
