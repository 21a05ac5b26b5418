package engine

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/stagekit-dev/stagekit/internal/progress"
)

// ProgressService describes how to launch the out-of-process progress
// reporter: the executable to run, the hidden subcommand that makes it
// behave as a progress.Server, and where its rendered lines should go.
type ProgressService struct {
	// Executable is the path to the stagekit binary (os.Args[0] in the
	// common case); Args is appended after it, typically a single hidden
	// subcommand name such as "__progress-server".
	Executable string
	Args       []string
	Output     *os.File // defaults to os.Stderr
	DialTimeout time.Duration
}

type progressClientHandle struct {
	cmd    *exec.Cmd
	client *progress.Client
}

// start picks a free port, launches the Progress Service as a child process
// with that port passed as a --port flag, and dials a client connection to
// it, retrying until the child is listening or the dial timeout elapses.
func (p *ProgressService) start() (*progressClientHandle, error) {
	port, err := progress.FindFreePort()
	if err != nil {
		return nil, fmt.Errorf("find free port: %w", err)
	}

	args := append(append([]string{}, p.Args...), fmt.Sprintf("--port=%d", port))
	cmd := exec.Command(p.Executable, args...)
	cmd.Stderr = p.output()
	cmd.Stdout = p.output()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start progress service: %w", err)
	}

	client, err := dialWithRetry(fmt.Sprintf("127.0.0.1:%d", port), p.dialTimeout())
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}

	return &progressClientHandle{cmd: cmd, client: client}, nil
}

func (p *ProgressService) output() *os.File {
	if p.Output != nil {
		return p.Output
	}
	return os.Stderr
}

func (p *ProgressService) dialTimeout() time.Duration {
	if p.DialTimeout > 0 {
		return p.DialTimeout
	}
	return 5 * time.Second
}

func dialWithRetry(addr string, timeout time.Duration) (*progress.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := progress.Dial(addr)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(25 * time.Millisecond)
	}
	return nil, fmt.Errorf("dial progress service at %s: %w", addr, lastErr)
}

// stop sends a close request to the subprocess, then waits for it to exit.
func (h *progressClientHandle) stop() {
	if h == nil || h.client == nil {
		return
	}
	_, _ = h.client.Send(progress.Request{Command: progress.CmdClose})
	_ = h.client.Close()
	if h.cmd != nil {
		_ = h.cmd.Wait()
	}
}
