package monitor

import (
	"strings"
	"testing"
)

func TestBuildCommandFieldSplit(t *testing.T) {
	s := Spec{Command: "python3 downloader.py --continuous --config config.ini"}
	cmd := s.BuildCommand()
	if len(cmd.Args) != 5 || cmd.Args[0] != "python3" || cmd.Args[2] != "--continuous" {
		t.Fatalf("unexpected args: %v", cmd.Args)
	}
}

func TestBuildCommandMetachars(t *testing.T) {
	s := Spec{Command: "echo hi > /tmp/x"}
	cmd := s.BuildCommand()
	if cmd.Args[0] != "/bin/sh" || cmd.Args[1] != "-c" {
		t.Fatalf("metacharacters should go through sh -c: %v", cmd.Args)
	}
}

func TestBuildCommandExplicitShellNotDoubleWrapped(t *testing.T) {
	s := Spec{Command: `sh -c 'echo hi; echo bye'`}
	cmd := s.BuildCommand()
	if cmd.Args[0] != "/bin/sh" || cmd.Args[1] != "-c" {
		t.Fatalf("explicit shell not honored: %v", cmd.Args)
	}
	if strings.HasPrefix(cmd.Args[2], "sh -c") {
		t.Fatalf("double-wrapped shell: %q", cmd.Args[2])
	}
	if cmd.Args[2] != "echo hi; echo bye" {
		t.Fatalf("quotes not stripped: %q", cmd.Args[2])
	}
}

func TestBuildCommandEmpty(t *testing.T) {
	s := Spec{Command: "   "}
	cmd := s.BuildCommand()
	if cmd.Args[0] != "/bin/true" {
		t.Fatalf("empty command should be a no-op: %v", cmd.Args)
	}
}
