package ctl

import (
	"context"
	"os/exec"
	"strings"
	"testing"
)

func TestRunCmd(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	ctx := context.Background()
	if err := RunCmd(ctx, Cmd{Path: "sh", Args: []string{"-c", `test "$PREDICTCTL_PROBE" = on`}, Env: map[string]string{"PREDICTCTL_PROBE": "on"}}); err != nil {
		t.Fatalf("env not passed: %v", err)
	}
	if err := RunCmd(ctx, Cmd{Path: "sh", Args: []string{"-c", "echo out; echo err >&2"}, Stream: true, Dir: t.TempDir()}); err != nil {
		t.Fatalf("streaming run: %v", err)
	}
	if err := RunCmd(ctx, Cmd{Path: "sh", Args: []string{"-c", "exit 3"}}); err == nil {
		t.Fatalf("expected non-zero exit to fail")
	}
}

func TestStream(t *testing.T) {
	stream("X", strings.NewReader("line1\nline2\n"))
}

func TestProcManager_KillAll(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	pm := NewProcManager()
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	pm.Add(cmd)
	if pm.Len() != 1 {
		t.Fatalf("expected 1 tracked process")
	}
	pm.KillAll()
	if pm.Len() != 0 {
		t.Fatalf("expected no tracked processes after KillAll")
	}
	if cmd.ProcessState == nil {
		t.Fatalf("process was not reaped")
	}
}
