package selfupdate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// NewReplacer returns the Replacer for the current OS.
func NewReplacer() Replacer {
	if runtime.GOOS == "windows" {
		return NewBatchReplacer()
	}

	return NewShellReplacer()
}

// BatchReplacer performs the replacement through a cmd.exe batch file.
type BatchReplacer struct {
	start func(cmd *exec.Cmd) error
}

// NewBatchReplacer returns a Windows Replacer.
func NewBatchReplacer() *BatchReplacer {
	return &BatchReplacer{start: startDetached}
}

// ScriptName implements Replacer.
func (*BatchReplacer) ScriptName() string {
	return "update_self.bat"
}

// TargetName implements Replacer.
func (*BatchReplacer) TargetName(version string) string {
	return TargetPrefix + version + ".exe"
}

// Script returns the batch file content for a plan.
func (*BatchReplacer) Script(plan Plan) string {
	quote := func(s string) string {
		return `"` + strings.ReplaceAll(s, "%", "%%") + `"`
	}

	lines := []string{
		"@echo off",
		fmt.Sprintf("timeout /t %d /nobreak > NUL", int(plan.Wait.Seconds())),
		"del " + quote(plan.Current),
		"if exist " + quote(plan.Target) + " del " + quote(plan.Target),
		"move " + quote(plan.Temp) + " " + quote(plan.Target),
		`start "" ` + quote(plan.Target),
		`del "%~f0"`,
	}

	return strings.Join(lines, "\r\n") + "\r\n"
}

// Schedule implements Replacer.
func (r *BatchReplacer) Schedule(ctx context.Context, plan Plan) error {
	err := writeScript(plan.Script, r.Script(plan))
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "Starting replacement script", "script", plan.Script)

	// #nosec G204
	return r.start(exec.Command("cmd.exe", "/C", plan.Script))
}

// ShellReplacer performs the replacement through a POSIX shell script.
type ShellReplacer struct {
	start func(cmd *exec.Cmd) error
}

// NewShellReplacer returns a Replacer for Unix systems.
func NewShellReplacer() *ShellReplacer {
	return &ShellReplacer{start: startDetached}
}

// ScriptName implements Replacer.
func (*ShellReplacer) ScriptName() string {
	return "update_self.sh"
}

// TargetName implements Replacer.
func (*ShellReplacer) TargetName(version string) string {
	return TargetPrefix + version
}

// Script returns the shell script content for a plan.
func (*ShellReplacer) Script(plan Plan) string {
	quote := func(s string) string {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}

	lines := []string{
		"#!/bin/sh",
		fmt.Sprintf("sleep %d", int(plan.Wait.Seconds())),
		"rm -f " + quote(plan.Current),
		"rm -f " + quote(plan.Target),
		"mv " + quote(plan.Temp) + " " + quote(plan.Target),
		"chmod +x " + quote(plan.Target),
		"nohup " + quote(plan.Target) + " >/dev/null 2>&1 &",
		`rm -f "$0"`,
	}

	return strings.Join(lines, "\n") + "\n"
}

// Schedule implements Replacer.
func (r *ShellReplacer) Schedule(ctx context.Context, plan Plan) error {
	err := writeScript(plan.Script, r.Script(plan))
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "Starting replacement script", "script", plan.Script)

	// #nosec G204
	return r.start(exec.Command("/bin/sh", plan.Script))
}

func writeScript(path string, content string) error {
	// #nosec G306
	err := os.WriteFile(path, []byte(content), 0o700) //nolint:gosec
	if err != nil {
		return fmt.Errorf("write replacement script: %w", err)
	}

	return nil
}

// startDetached starts the command so that it outlives this process.
func startDetached(cmd *exec.Cmd) error {
	setDetachedProcAttr(cmd)

	err := cmd.Start()
	if err != nil {
		return err
	}

	// Don't wait on it.
	return cmd.Process.Release()
}
