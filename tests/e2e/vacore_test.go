// Package e2e contains end-to-end tests for the vacore CLI.
// Tests run a built binary; set VACORE_BINARY to use a pre-built one.
package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// getBinaryName returns the test binary name with platform-specific extension
func getBinaryName() string {
	if runtime.GOOS == "windows" {
		return "vacore-test.exe"
	}
	return "vacore-test"
}

// getBinaryPath returns the path to execute the test binary
func getBinaryPath(t *testing.T) string {
	if path := os.Getenv("VACORE_BINARY"); path != "" {
		return path
	}
	return filepath.Join(getProjectRoot(t), getBinaryName())
}

// buildBinary builds the CLI unless a pre-built binary is provided.
func buildBinary(t *testing.T) {
	t.Helper()
	if os.Getenv("VACORE_E2E") != "1" {
		t.Skip("Skipping E2E test (set VACORE_E2E=1 to run)")
	}
	if os.Getenv("VACORE_BINARY") != "" {
		return
	}

	root := getProjectRoot(t)
	buildCmd := exec.Command("go", "build", "-o", getBinaryName(), "./cmd/vacore")
	buildCmd.Dir = root
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build CLI: %v\n%s", err, out)
	}
	t.Cleanup(func() { os.Remove(filepath.Join(root, getBinaryName())) })
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command(getBinaryPath(t), args...)
	cmd.Dir = getProjectRoot(t)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// TestEncodeCommand encodes a clip and checks the MP4 on disk.
func TestEncodeCommand(t *testing.T) {
	buildBinary(t)

	output := filepath.Join(t.TempDir(), "clip.mp4")
	stdout, stderr, err := runCLI(t, "encode", "-o", output, "-p", "qcif", "--frames", "5")
	if err != nil {
		t.Fatalf("Encode command failed: %v\nstdout: %s\nstderr: %s", err, stdout, stderr)
	}

	videoData, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	if len(videoData) < 8 || string(videoData[4:8]) != "ftyp" {
		t.Error("Invalid MP4 file")
	}
	if !strings.Contains(stdout, output) {
		t.Errorf("expected output path in log, got %q", stdout)
	}

	t.Logf("Video created: %d bytes", len(videoData))
}

// TestEncodeWithDebugOutput checks the debug directory layout.
func TestEncodeWithDebugOutput(t *testing.T) {
	buildBinary(t)

	dir := t.TempDir()
	debugDir := filepath.Join(dir, "debug")
	_, stderr, err := runCLI(t, "encode", "-Q",
		"-o", filepath.Join(dir, "clip.mp4"),
		"-W", "64", "-H", "48", "-n", "3",
		"-d", "--debug-dir", debugDir,
	)
	if err != nil {
		t.Fatalf("Encode command failed: %v\nstderr: %s", err, stderr)
	}

	for _, name := range []string{"stream.h264", "report.json", "frames/source", "frames/decoded"} {
		if _, err := os.Stat(filepath.Join(debugDir, name)); err != nil {
			t.Errorf("expected %s in debug output: %v", name, err)
		}
	}
	entries, _ := os.ReadDir(filepath.Join(debugDir, "frames", "decoded"))
	if len(entries) != 3 {
		t.Errorf("expected 3 decoded frames, got %d", len(entries))
	}
}

// TestProbeCommand probes a clip made by the encode command.
func TestProbeCommand(t *testing.T) {
	buildBinary(t)

	output := filepath.Join(t.TempDir(), "clip.mp4")
	if _, stderr, err := runCLI(t, "encode", "-Q", "-o", output, "-W", "32", "-H", "32", "-n", "2", "--profile", "high"); err != nil {
		t.Fatalf("Encode command failed: %v\nstderr: %s", err, stderr)
	}

	stdout, _, err := runCLI(t, "probe", output)
	if err != nil {
		t.Fatalf("Probe command failed: %v", err)
	}
	if !strings.Contains(stdout, "h264 32x32") || !strings.Contains(stdout, "profile_idc=100") {
		t.Errorf("Unexpected probe output: %s", stdout)
	}

	if _, _, err := runCLI(t, "probe"); err == nil {
		t.Error("expected probe without arguments to fail")
	}
}

// TestInfoCommand lists the capabilities.
func TestInfoCommand(t *testing.T) {
	buildBinary(t)

	stdout, _, err := runCLI(t, "info")
	if err != nil {
		t.Fatalf("Info command failed: %v", err)
	}
	if !strings.Contains(stdout, "VAProfileH264ConstrainedBaseline") {
		t.Errorf("Unexpected info output: %s", stdout)
	}
}

// TestVersionCommand tests the version subcommand and flag.
func TestVersionCommand(t *testing.T) {
	buildBinary(t)

	for _, args := range [][]string{{"version"}, {"--version"}} {
		stdout, _, err := runCLI(t, args...)
		if err != nil {
			t.Fatalf("%v failed: %v", args, err)
		}
		if !strings.Contains(stdout, "vacore") {
			t.Errorf("Unexpected version output for %v: %s", args, stdout)
		}
	}
}

func getProjectRoot(t *testing.T) string {
	// Start from current working directory and find go.mod
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("Could not find project root (go.mod)")
		}
		dir = parent
	}
}
