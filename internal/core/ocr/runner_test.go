package ocr

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"testing"
)

func TestExecRunnerKeepsStderrTail(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	var logs bytes.Buffer
	r := execRunner{
		logger:      slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		stderrLimit: 8,
	}

	_, err = r.Run(context.Background(), Command{
		Step: StepRecognize,
		Bin:  sh,
		Args: []string{"-c", "echo 'Error opening data file eng.traineddata' >&2; exit 3"},
		Doc:  "form.png",
	})
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("expected ToolError, got %v", err)
	}
	if te.Step != StepRecognize || te.Stderr != "...ineddata" {
		t.Fatalf("unexpected tool error: %+v", te)
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 3 {
		t.Fatalf("exit error not wrapped: %v", err)
	}
	for _, want := range []string{"step=recognize", "document=form.png", "ocr tool failed"} {
		if !strings.Contains(logs.String(), want) {
			t.Fatalf("log missing %q:\n%s", want, logs.String())
		}
	}
}

func TestExecRunnerReturnsStdout(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	r := execRunner{logger: quietLogger(), stderrLimit: 64}
	out, err := r.Run(context.Background(), Command{Step: StepRecognize, Bin: sh, Args: []string{"-c", "printf 'Village: Khandwa'"}})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "Village: Khandwa" {
		t.Fatalf("stdout = %q", out)
	}
}
