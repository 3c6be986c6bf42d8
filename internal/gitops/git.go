// Package gitops wraps the git CLI for the push and pull commands. It
// shells out rather than reimplementing git; the Runner seam keeps the
// logic testable without a real repository.
package gitops

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/datajar/datajar/internal/log"
)

// Runner executes one git subcommand and returns its combined output.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// execRunner shells out to the git binary.
type execRunner struct {
	dir string
}

func (r execRunner) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir
	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		if output != "" {
			return output, fmt.Errorf("git %s: %w: %s", args[0], err, output)
		}
		return output, fmt.Errorf("git %s: %w", args[0], err)
	}
	return output, nil
}

// Git runs repository operations in a working directory.
type Git struct {
	runner Runner
	logger log.Logger
}

// New creates a Git over the repository at dir.
func New(dir string, logger log.Logger) *Git {
	return &Git{runner: execRunner{dir: dir}, logger: logger}
}

// NewWithRunner creates a Git with a custom runner. Used in tests.
func NewWithRunner(r Runner, logger log.Logger) *Git {
	return &Git{runner: r, logger: logger}
}

// Push stages all pending changes, commits them with message, and pushes
// the branch. A clean tree is not an error: the push still runs so local
// commits reach the remote.
func (g *Git) Push(ctx context.Context, branch, message string, force bool) error {
	if _, err := g.runner.Run(ctx, "add", "-A"); err != nil {
		return err
	}

	if out, err := g.runner.Run(ctx, "commit", "-m", message); err != nil {
		if !strings.Contains(out, "nothing to commit") {
			return err
		}
		g.logger.Info("nothing to commit, pushing existing commits")
	}

	args := []string{"push"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, "origin", branch)

	if _, err := g.runner.Run(ctx, args...); err != nil {
		return err
	}

	g.logger.Info("pushed branch", "branch", branch, "force", force)
	return nil
}

// Pull fetches and merges the branch from origin.
func (g *Git) Pull(ctx context.Context, branch string) error {
	if _, err := g.runner.Run(ctx, "pull", "origin", branch); err != nil {
		return err
	}
	g.logger.Info("pulled branch", "branch", branch)
	return nil
}
