package main

import (
	"fmt"
	"os/exec"

	shellwords "github.com/mattn/go-shellwords"
)

// CommandSpawner launches a configured button command as a detached OS
// process. Fire and forget: the exit status is never awaited or reported.
type CommandSpawner interface {
	Spawn(commandLine string) error
}

// execSpawner is the production spawner. The command line is split with
// shell-style word rules (quoting respected, no expansion) and started
// without a controlling terminal or pipe back to the daemon.
type execSpawner struct{}

func (execSpawner) Spawn(commandLine string) error {
	argv, err := shellwords.Parse(commandLine)
	if err != nil {
		return fmt.Errorf("parse command line: %w", err)
	}
	if len(argv) == 0 {
		return fmt.Errorf("empty command line")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %q: %w", argv[0], err)
	}

	// Detach: let the child outlive us and leave reaping to the OS.
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("release %q: %w", argv[0], err)
	}
	return nil
}
