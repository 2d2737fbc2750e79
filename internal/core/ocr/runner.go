package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// Step names the part of recognition an external tool performs.
type Step string

const (
	StepRasterize Step = "rasterize" // pdf pages to png
	StepRecognize Step = "recognize" // image to text
	StepConvert   Step = "convert"   // heic to png
)

// Command is one external tool call made on behalf of a document.
type Command struct {
	Step Step
	Bin  string
	Args []string
	Doc  string
}

// Runner executes tool commands. Tests swap it out so no binaries are needed.
type Runner interface {
	Run(ctx context.Context, cmd Command) (stdout []byte, err error)
}

// ToolError is a failed tool call carrying the tail of its stderr.
type ToolError struct {
	Step   Step
	Bin    string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Bin, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Bin, e.Err, e.Stderr)
}

func (e *ToolError) Unwrap() error { return e.Err }

type execRunner struct {
	logger      *slog.Logger
	stderrLimit int
}

func (r execRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	log := r.logger.With("step", c.Step, "document", c.Doc)

	cmd := exec.CommandContext(ctx, c.Bin, c.Args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		stderr := tail(string(bytes.TrimSpace(errb.Bytes())), r.stderrLimit)
		log.Warn("ocr tool failed", "bin", c.Bin, "elapsed_ms", elapsed, "error", err, "stderr", stderr)
		return nil, &ToolError{Step: c.Step, Bin: c.Bin, Stderr: stderr, Err: err}
	}
	log.Debug("ocr tool done", "bin", c.Bin, "elapsed_ms", elapsed, "stdout_bytes", out.Len())
	return out.Bytes(), nil
}

// tail keeps the last n bytes; tools print the real failure at the end.
func tail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
