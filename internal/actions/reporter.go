// Package actions reports results to a GitHub Actions runner.
//
// Outputs are kept in memory and appended to the file named by
// $GITHUB_OUTPUT using the runner's heredoc syntax. Workflow commands
// (::error::, ::add-mask::) are written to the status writer.
package actions

import (
	"fmt"
	"io"
	"maps"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// OutputFileEnv names the runner's append-only output file
const OutputFileEnv = "GITHUB_OUTPUT"

// Reporter collects named outputs and status lines for one invocation
type Reporter struct {
	mu         sync.Mutex
	outputs    map[string]string
	outputFile string
	status     io.Writer

	// newDelimiter is replaceable in tests
	newDelimiter func() string
}

// NewReporter writes status lines to status and appends outputs to
// outputFile. An empty outputFile keeps outputs in memory only.
func NewReporter(status io.Writer, outputFile string) *Reporter {
	if status == nil {
		status = io.Discard
	}
	return &Reporter{
		outputs:    make(map[string]string),
		outputFile: outputFile,
		status:     status,
		newDelimiter: func() string {
			return "ghadelimiter_" + uuid.NewString()
		},
	}
}

// FromEnvironment creates a Reporter for the output file the runner exported
func FromEnvironment(status io.Writer) *Reporter {
	return NewReporter(status, os.Getenv(OutputFileEnv))
}

// SetOutput records name=value in memory and appends it to the output file
func (r *Reporter) SetOutput(name, value string) error {
	if name == "" {
		return fmt.Errorf("output name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.outputs[name] = value
	if r.outputFile == "" {
		return nil
	}

	line, err := r.keyValue(name, value)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(r.outputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // #nosec G304 - path comes from the runner
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.WriteString(f, line); err != nil {
		return fmt.Errorf("failed to write output %s: %w", name, err)
	}
	return nil
}

// keyValue formats one entry as
//
//	name<<delimiter
//	value
//	delimiter
func (r *Reporter) keyValue(name, value string) (string, error) {
	delimiter := r.newDelimiter()
	if strings.Contains(name, delimiter) {
		return "", fmt.Errorf("output name %q must not contain the delimiter %q", name, delimiter)
	}
	if strings.Contains(value, delimiter) {
		return "", fmt.Errorf("value of output %q must not contain the delimiter %q", name, delimiter)
	}
	return name + "<<" + delimiter + "\n" + value + "\n" + delimiter + "\n", nil
}

// Outputs returns a copy of every output set so far
func (r *Reporter) Outputs() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.outputs)
}

// Info writes a human-readable status line
func (r *Reporter) Info(format string, args ...any) {
	_, _ = fmt.Fprintf(r.status, format+"\n", args...)
}

// Mask asks the runner to hide secret in all later log output
func (r *Reporter) Mask(secret string) {
	if secret == "" {
		return
	}
	_, _ = fmt.Fprintf(r.status, "::add-mask::%s\n", escapeData(secret))
}

// SetFailed reports err as the failure reason of the step
func (r *Reporter) SetFailed(err error) {
	msg := "An unknown error occurred"
	if err != nil {
		msg = err.Error()
	}
	_, _ = fmt.Fprintf(r.status, "::error::%s\n", escapeData(msg))
}

// escapeData encodes the characters workflow commands treat as structure
func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	return strings.ReplaceAll(s, "\n", "%0A")
}
