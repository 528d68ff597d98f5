package sidecar

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"
)

const maxLineSize = 1024 * 1024

// DefaultWaitDelay bounds how long output is still read after the child
// exits or is killed. Grandchildren holding stdout open are cut off then.
const DefaultWaitDelay = 3 * time.Second

// Child identifies a spawned process
type Child struct {
	PID  int
	Path string
}

// Spawner starts a named executable and reports what it does as events.
// The event channel ends with one EventTerminated and is then closed.
type Spawner interface {
	Spawn(ctx context.Context, name string, args []string) (<-chan CommandEvent, *Child, error)
}

// ExecSpawner runs executables with os/exec. The child is killed when the
// context passed to Spawn is cancelled.
type ExecSpawner struct {
	// Dir is searched before $PATH, the way bundled sidecars ship next to
	// the application
	Dir string

	// WaitDelay overrides DefaultWaitDelay when positive
	WaitDelay time.Duration
}

// Lookup returns the executable path for name
func (s *ExecSpawner) Lookup(name string) (string, error) {
	if s.Dir != "" {
		candidates := []string{filepath.Join(s.Dir, name)}
		if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
			candidates = append(candidates, filepath.Join(s.Dir, name+".exe"))
		}
		for _, candidate := range candidates {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return filepath.Abs(candidate)
			}
		}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("sidecar %s not found: %w", name, err)
	}
	return path, nil
}

// Spawn starts name with args. Stdin is left unconnected.
func (s *ExecSpawner) Spawn(ctx context.Context, name string, args []string) (<-chan CommandEvent, *Child, error) {
	path, err := s.Lookup(name)
	if err != nil {
		return nil, nil, err
	}

	// Writer-backed pipes let cmd.Wait enforce WaitDelay; with StdoutPipe
	// the scanners would have to finish before Wait may be called.
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	cmd.WaitDelay = s.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}

	if err := cmd.Start(); err != nil {
		stdoutW.Close()
		stderrW.Close()
		return nil, nil, fmt.Errorf("failed to start %s: %w", path, err)
	}

	events := make(chan CommandEvent, 64)

	var wg sync.WaitGroup
	wg.Add(2)
	go scanLines(&wg, stdoutR, events, StdoutEvent)
	go scanLines(&wg, stderrR, events, StderrEvent)

	go func() {
		defer close(events)

		err := cmd.Wait()
		stdoutW.Close()
		stderrW.Close()
		wg.Wait()

		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			events <- ErrorEvent(err.Error())
		}
		events <- TerminatedEvent(terminatedPayload(cmd.ProcessState))
	}()

	return events, &Child{PID: cmd.Process.Pid, Path: path}, nil
}

func scanLines(wg *sync.WaitGroup, r io.Reader, events chan<- CommandEvent, wrap func([]byte) CommandEvent) {
	defer wg.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		events <- wrap(line)
	}
	if err := scanner.Err(); err != nil {
		events <- ErrorEvent(fmt.Sprintf("failed to read output: %v", err))
		// Keep the pipe drained so the child never blocks on a full buffer
		_, _ = io.Copy(io.Discard, r)
	}
}

func terminatedPayload(state *os.ProcessState) TerminatedPayload {
	var p TerminatedPayload
	if state == nil {
		return p
	}

	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		signal := int(status.Signal())
		p.Signal = &signal
		return p
	}

	code := state.ExitCode()
	if code >= 0 {
		p.Code = &code
	}
	return p
}
