package mesher

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrToolFailed wraps every failed external tool invocation.
var ErrToolFailed = errors.New("external tool failed")

// Runner runs an external program in dir and returns its combined output.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct {
	Logger *zap.Logger
}

// Run executes name with args. The context is passed to the process; it
// is never cancelled here.
func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	start := time.Now()
	log.Debug("running external tool", zap.String("cmd", name), zap.Strings("args", args), zap.String("dir", dir))
	out, err := cmd.CombinedOutput()
	if err != nil {
		log.Error("external tool failed",
			zap.String("cmd", name),
			zap.Error(err),
			zap.String("output", lastLines(string(out), 20)))
		return out, fmt.Errorf("%w: %s: %v", ErrToolFailed, name, err)
	}
	log.Debug("external tool finished", zap.String("cmd", name), zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
