package monitor

import (
	"os/exec"
	"strings"

	"github.com/redwatch/redwatch/internal/logger"
)

// Spec describes one supervised external command.
type Spec struct {
	Name    string        // logical task name: "scraper", "comments"
	Command string        // full command line, shell-split or run via sh -c
	WorkDir string        // optional working dir
	Env     []string      // optional extra env (appended to os.Environ)
	PIDDir  string        // directory for the <name>.pid file; empty disables
	Log     logger.Config // rotating stdout/stderr log destinations
}

// BuildCommand constructs an *exec.Cmd for the spec's command line.
// A shell is only involved when the command asks for one: an explicit
// "sh -c ..." prefix is honored without double-wrapping, and shell
// metacharacters imply /bin/sh -c. Plain commands are field-split.
func (s *Spec) BuildCommand() *exec.Cmd {
	cmdStr := strings.TrimSpace(s.Command)
	if cmdStr == "" {
		// #nosec G204
		return exec.Command("/bin/true")
	}
	if after, ok := explicitShellArg(cmdStr); ok {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", after)
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", cmdStr)
	}
	parts := strings.Fields(cmdStr)
	name := parts[0]
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	// #nosec G204
	return exec.Command(name, args...)
}

// explicitShellArg detects "sh -c <ARG>" style prefixes and returns the
// argument after -c verbatim, stripping one pair of surrounding quotes so
// the script text reaches the shell unwrapped.
func explicitShellArg(cmdStr string) (string, bool) {
	trim := strings.TrimLeft(cmdStr, " \t")
	for _, p := range []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "} {
		if strings.HasPrefix(trim, p) {
			after := trim[len(p):]
			if n := len(after); n >= 2 {
				if (after[0] == '\'' && after[n-1] == '\'') || (after[0] == '"' && after[n-1] == '"') {
					after = after[1 : n-1]
				}
			}
			return after, true
		}
	}
	return "", false
}
