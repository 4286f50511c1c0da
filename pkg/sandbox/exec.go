package sandbox

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// progressMarkers are the output prefixes worth surfacing at info level.
var progressMarkers = []string{"Installing", "Upgrading", "Removing", "Downloading", "Verifying", "Running", "Complete!"}

// BwrapExecutor runs commands with bubblewrap.
type BwrapExecutor struct {
	// Binary is the bwrap executable, "bwrap" when empty.
	Binary string
}

// NewBwrapExecutor returns an executor using bwrap from PATH.
func NewBwrapExecutor() *BwrapExecutor {
	return &BwrapExecutor{Binary: "bwrap"}
}

// Run implements Executor.
func (e *BwrapExecutor) Run(ctx context.Context, cmdline []string, spec *Spec, env map[string]string, stdout io.Writer) (*Result, error) {
	if len(cmdline) == 0 {
		return nil, fmt.Errorf("command is required")
	}

	argv := cmdline
	if spec != nil {
		var err error
		argv, err = NewBwrapBuilder(e.Binary).Build(spec, cmdline)
		if err != nil {
			return nil, fmt.Errorf("failed to build sandbox command: %w", err)
		}
	}

	log.Debugf("Running command: %s", strings.Join(argv, " "))
	program := programName(cmdline)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = mergeEnv(os.Environ(), env)

	result := &Result{Args: argv, ExitCode: -1}
	start := time.Now()

	// Output not claimed by the caller goes to the log and is kept for error reporting
	var outputBuffer strings.Builder
	var outputMu sync.Mutex
	var pipes []io.Reader

	if stdout != nil {
		cmd.Stdout = stdout
	} else {
		pipe, err := cmd.StdoutPipe()
		if err != nil {
			return result, fmt.Errorf("failed to create stdout pipe: %w", err)
		}
		pipes = append(pipes, pipe)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return result, fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	pipes = append(pipes, stderr)

	if err := cmd.Start(); err != nil {
		return result, fmt.Errorf("failed to start %s: %w", program, err)
	}

	var wg sync.WaitGroup
	for _, pipe := range pipes {
		wg.Add(1)
		go func(r io.Reader) {
			defer wg.Done()
			scanner := bufio.NewScanner(r)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for scanner.Scan() {
				line := scanner.Text()
				outputMu.Lock()
				outputBuffer.WriteString(line + "\n")
				outputMu.Unlock()
				logLine(line)
			}
		}(pipe)
	}
	wg.Wait()

	err = cmd.Wait()
	result.Duration = time.Since(start)
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return result, fmt.Errorf("%s exited with status %d: %w\nOutput:\n%s",
				program, result.ExitCode, err, outputBuffer.String())
		}
		return result, fmt.Errorf("failed to run %s: %w", program, err)
	}

	return result, nil
}

// programName returns the program cmdline runs, looking through an env wrapper and its
// variable assignments.
func programName(cmdline []string) string {
	args := cmdline
	if len(args) > 0 && filepath.Base(args[0]) == "env" {
		args = args[1:]
		for len(args) > 0 && strings.Contains(args[0], "=") && !strings.HasPrefix(args[0], "-") {
			args = args[1:]
		}
	}
	if len(args) == 0 {
		return cmdline[0]
	}
	return args[0]
}

func logLine(line string) {
	trimmed := strings.TrimSpace(line)
	for _, marker := range progressMarkers {
		if strings.HasPrefix(trimmed, marker) {
			log.Info(line)
			return
		}
	}
	log.Debug(line)
}

// mergeEnv overlays overrides onto base, keeping base order and appending new keys sorted.
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}

	merged := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		merged = append(merged, kv)
	}

	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		merged = append(merged, key+"="+overrides[key])
	}

	return merged
}
