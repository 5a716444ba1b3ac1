package cli

import (
	"errors"
	"fmt"

	"github.com/cd-Crypton/anistream/pkg/config"
)

// Exit codes returned by the anistream command.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfigError = 2
)

// ConfigError reports an unusable configuration file or field.
type ConfigError struct {
	// Path is the configuration file, if known.
	Path string

	// Field is the dotted field path, e.g. "upstream.base_url". Empty when
	// the whole file is at fault.
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	switch {
	case e.Field != "" && e.Path != "":
		return fmt.Sprintf("config error in %s (%s): %s", e.Field, e.Path, e.Message)
	case e.Field != "":
		return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
	case e.Path != "":
		return fmt.Sprintf("config error in %s: %s", e.Path, e.Message)
	default:
		return "config error: " + e.Message
	}
}

// CommandError reports a failed subcommand.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError for one field.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewCommandError wraps err as the failure of command.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}

// ConfigErrors flattens a configuration load failure into one ConfigError
// per offending field. Errors that are not validation failures come back as
// a single file-level ConfigError.
func ConfigErrors(path string, err error) []*ConfigError {
	var verr config.ValidationError
	if !errors.As(err, &verr) {
		return []*ConfigError{{Path: path, Message: err.Error()}}
	}

	out := make([]*ConfigError, 0, len(verr.Errors))
	for _, fe := range verr.Errors {
		out = append(out, &ConfigError{Path: path, Field: fe.Field, Message: fe.Message})
	}
	return out
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cfgErr *ConfigError
	var verr config.ValidationError
	if errors.As(err, &cfgErr) || errors.As(err, &verr) {
		return ExitConfigError
	}
	return ExitFailure
}
