package shell

import "fmt"

// CommandError reports a command that exhausted all retry attempts. Output
// holds the combined stdout and stderr of the final attempt.
type CommandError struct {
	Command string
	Stdin   []byte
	Output  []byte
}

func (e *CommandError) Error() string {
	if len(e.Stdin) > 0 {
		return fmt.Sprintf("executing command %q with stdin %q failed:\n%s", e.Command, e.Stdin, e.Output)
	}
	return fmt.Sprintf("executing command %q failed:\n%s", e.Command, e.Output)
}

// LaunchError reports a command whose process could not be started at all.
// Unlike a non-zero exit this is never retried.
type LaunchError struct {
	Command string
	Stdin   []byte
	Err     error
}

func (e *LaunchError) Error() string {
	if len(e.Stdin) > 0 {
		return fmt.Sprintf("error executing command %q with stdin %q: %v", e.Command, e.Stdin, e.Err)
	}
	return fmt.Sprintf("error executing command %q: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }
