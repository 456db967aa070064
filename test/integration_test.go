//go:build integration

package test_test

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var testBinary string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("HUSHLIGHT_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "HUSHLIGHT_TEST_BIN not set; build the binary and point at it")
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func scenario(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// runHushlight runs the binary with an empty environment so no stray
// HUSHLIGHT_* or config variables leak in.
func runHushlight(t *testing.T, env []string, args ...string) (logDir, out string) {
	t.Helper()
	logDir = t.TempDir()
	cmdArgs := append([]string{"-logpath", logDir, "-tui=false"}, args...)

	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Env = append([]string{"HOME=" + t.TempDir()}, env...)

	b, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("hushlight exited with error: %v\noutput: %s", err, b)
	}
	return logDir, string(b)
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

var quiet = []string{"CALIBRATION_ENABLED=false"}

func TestVersion(t *testing.T) {
	out, err := exec.Command(testBinary, "-version").CombinedOutput()
	if err != nil {
		t.Fatalf("-version: %v", err)
	}
	if !strings.HasPrefix(string(out), "hushlight ") {
		t.Errorf("version output = %q", out)
	}
}

func TestQuietLessonRewardsOnce(t *testing.T) {
	path := scenario(t, "0 40", "600 40")
	logDir, out := runHushlight(t, quiet, "-simulate", path)

	if n := strings.Count(out, "animate reward-swirl"); n != 1 {
		t.Errorf("reward swirls = %d, want 1\n%s", n, out)
	}
	rewards := strings.TrimSpace(readLog(t, logDir, "rewards_log.txt"))
	if n := len(strings.Split(rewards, "\n")); rewards == "" || n != 1 {
		t.Errorf("rewards_log.txt has %d lines, want 1:\n%s", n, rewards)
	}
	diag := readLog(t, logDir, "diagnostics_log.txt")
	if !strings.Contains(diag, "session_start") {
		t.Error("expected session_start in diagnostics")
	}
}

func TestNoisyLessonNeverRewards(t *testing.T) {
	path := scenario(t, "0 80", "600 80")
	_, out := runHushlight(t, quiet, "-simulate", path)
	if !strings.Contains(out, "rewards=0") {
		t.Errorf("expected no rewards:\n%s", out)
	}
}

func TestWeekendSleeps(t *testing.T) {
	path := scenario(t, "0 40", "300 40")
	_, out := runHushlight(t, quiet, "-simulate", path, "-simstart", "2025-03-08T10:00:00Z")
	if !strings.Contains(out, "animate sleep-rainbow") {
		t.Errorf("expected sleep animation on a Saturday:\n%s", out)
	}
	if strings.Contains(out, "reward-swirl") {
		t.Errorf("reward outside a lesson:\n%s", out)
	}
}

func TestConfigFileBand(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "hushlight.env")
	if err := os.WriteFile(cfg, []byte("AUDIENCE_BAND=SEN\nCALIBRATION_ENABLED=false\n"), 0644); err != nil {
		t.Fatal(err)
	}
	path := scenario(t, "0 40", "10 40")
	logDir, _ := runHushlight(t, nil, "-config", cfg, "-simulate", path)
	if diag := readLog(t, logDir, "diagnostics_log.txt"); !strings.Contains(diag, "SEN") {
		t.Errorf("expected SEN band in session start:\n%s", diag)
	}
}

func TestBadScenarioFails(t *testing.T) {
	path := scenario(t, "not a scenario")
	cmd := exec.Command(testBinary, "-logpath", t.TempDir(), "-simulate", path)
	cmd.Env = []string{"HOME=" + t.TempDir()}
	if err := cmd.Run(); err == nil {
		t.Fatal("expected a non-zero exit for a malformed scenario")
	}
}
