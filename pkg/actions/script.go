package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/detrin/sentinel/pkg/config"
	"github.com/detrin/sentinel/pkg/models"
)

// ScriptDriver runs executables that live under the configured scripts
// directory. Scripts are sandboxed: the wrapper kills them at the configured
// timeout, the environment is cleared down to three variables, and the
// working directory is pinned to the scripts directory.
type ScriptDriver struct {
	cfg config.ScriptConfig
}

// NewScriptDriver creates a script driver over the given sandbox settings.
func NewScriptDriver(cfg config.ScriptConfig) *ScriptDriver {
	return &ScriptDriver{cfg: cfg}
}

type scriptConfig struct {
	ScriptPath string   `json:"script_path"`
	Args       []string `json:"args"`
}

// Execute runs one script to completion and captures its output. A non-zero
// exit code is returned in the Result, not as an error; only failures to run
// the script at all are errors.
func (d *ScriptDriver) Execute(ctx context.Context, configJSON, switchID string, executionType models.ExecutionType) (Result, error) {
	var cfg scriptConfig
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return Result{}, fmt.Errorf("Failed to parse script config: %v", err)
	}

	scriptPath, err := d.resolve(cfg.ScriptPath)
	if err != nil {
		return Result{}, err
	}

	// The wrapper owns the precise timeout; the context deadline is a
	// backstop 5s wider in case the wrapper itself wedges.
	ctx, cancel := context.WithTimeout(ctx, time.Duration(d.cfg.TimeoutSeconds+5)*time.Second)
	defer cancel()

	args := append([]string{
		"--signal=KILL",
		strconv.FormatInt(d.cfg.TimeoutSeconds, 10),
		scriptPath,
	}, cfg.Args...)
	cmd := exec.CommandContext(ctx, "timeout", args...)
	cmd.Dir = d.cfg.Dir
	cmd.Env = []string{
		"SWITCH_ID=" + switchID,
		"EXECUTION_TYPE=" + string(executionType),
		"PATH=/usr/local/bin:/usr/bin:/bin",
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return Result{}, fmt.Errorf("Script timeout (%ds + 5s buffer)", d.cfg.TimeoutSeconds)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("Failed to execute script: %v", err)
		}
	}

	// ExitCode is -1 when the process was killed before exiting normally.
	return Result{
		ExitCode: int64(cmd.ProcessState.ExitCode()),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// resolve joins the configured path against the scripts directory and
// verifies both containment and existence. Path traversal out of the
// directory reports the same error as a missing script.
func (d *ScriptDriver) resolve(scriptPath string) (string, error) {
	base, err := filepath.Abs(d.cfg.Dir)
	if err != nil {
		return "", fmt.Errorf("Failed to execute script: %v", err)
	}
	full := filepath.Join(base, scriptPath)
	if full != base && !strings.HasPrefix(full, base+string(filepath.Separator)) {
		return "", fmt.Errorf("Script not found: %s", full)
	}
	if _, err := os.Stat(full); err != nil {
		return "", fmt.Errorf("Script not found: %s", full)
	}
	return full, nil
}
