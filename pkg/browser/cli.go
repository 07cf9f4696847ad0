package browser

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ormasoftchile/clickcheck/pkg/providers"
	"github.com/ormasoftchile/clickcheck/pkg/snapshot"
)

// DefaultCLITimeout bounds every playwright-cli invocation.
const DefaultCLITimeout = 15 * time.Second

// CLI drives playwright-cli, one invocation per primitive:
//
//	playwright-cli -s=<label> <subcommand> [args...]
type CLI struct {
	Exec    providers.CommandExecutor
	Binary  string        // defaults to "playwright-cli"
	Timeout time.Duration // defaults to DefaultCLITimeout
	// BaseDir resolves relative snapshot artifact paths reported by the tool.
	BaseDir string
	// ReadFile reads snapshot artifacts; defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)
	Logger   *zap.Logger
}

func (c *CLI) run(ctx context.Context, label string, args ...string) (string, error) {
	bin := c.Binary
	if bin == "" {
		bin = "playwright-cli"
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultCLITimeout
	}
	argv := append([]string{bin, "-s=" + label}, args...)
	return providers.Run(ctx, c.Exec, timeout, argv...)
}

// Open navigates the session to url, creating the session if needed.
func (c *CLI) Open(ctx context.Context, label, url string) error {
	_, err := c.run(ctx, label, "open", url)
	return err
}

// Fill types value into the element ref.
func (c *CLI) Fill(ctx context.Context, label, ref, value string) error {
	_, err := c.run(ctx, label, "fill", ref, value)
	return err
}

// Click clicks the element ref.
func (c *CLI) Click(ctx context.Context, label, ref string) error {
	_, err := c.run(ctx, label, "click", ref)
	return err
}

// Snapshot captures the page and reads back the artifact the tool wrote.
func (c *CLI) Snapshot(ctx context.Context, label string) (string, string, error) {
	out, err := c.run(ctx, label, "snapshot")
	if err != nil {
		return "", "", err
	}
	rel, ok := snapshot.ArtifactPath(out)
	if !ok {
		c.logger().Debug("snapshot output has no artifact link", zap.String("session", label))
		return "", "", nil
	}
	path := rel
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.BaseDir, rel)
	}
	read := c.ReadFile
	if read == nil {
		read = os.ReadFile
	}
	data, err := read(path)
	if err != nil {
		c.logger().Debug("snapshot artifact unreadable",
			zap.String("session", label),
			zap.String("path", path),
			zap.Error(err))
		return "", path, nil
	}
	return string(data), path, nil
}

// Eval runs script in the page.
func (c *CLI) Eval(ctx context.Context, label, script string) (string, error) {
	return c.run(ctx, label, "eval", script)
}

// Screenshot saves a PNG of the page to path.
func (c *CLI) Screenshot(ctx context.Context, label, path string) error {
	_, err := c.run(ctx, label, "screenshot", "--filename="+path)
	return err
}

// Close ends the session.
func (c *CLI) Close(ctx context.Context, label string) error {
	_, err := c.run(ctx, label, "close")
	return err
}

func (c *CLI) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
