package ctl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Cmd describes an external command.
type Cmd struct {
	Path   string
	Args   []string
	Env    map[string]string // additional env vars
	Dir    string            // working directory
	Stream bool              // if true, forward output line by line through the logger
}

// RunCmd runs c to completion, inheriting the environment.
func RunCmd(ctx context.Context, c Cmd) error {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	cmd.Env = os.Environ()
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	debug("run %s %v", c.Path, c.Args)
	if c.Stream {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return err
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return err
		}
		if err := cmd.Start(); err != nil {
			return err
		}
		done := make(chan struct{}, 2)
		go func() { stream(c.Path, stdout); done <- struct{}{} }()
		go func() { stream(c.Path, stderr); done <- struct{}{} }()
		<-done
		<-done
		return cmd.Wait()
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func stream(prefix string, r io.Reader) {
	s := bufio.NewScanner(r)
	for s.Scan() {
		logger.Info().Str("proc", prefix).Msg(s.Text())
	}
}
