// internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/frostpath/gauntlet/internal/scenario"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Reporter writes run reports to an output.
type Reporter interface {
	// Write emits a single run report.
	Write(report *scenario.Report) error
	// Close finalizes the report output and releases any file handle.
	Close() error
}

// nopWriteCloser wraps an io.Writer with a no-op Close.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error { return nil }

// New creates a reporter writing to the given path, or stdout when the path
// is empty or "stdout". JSON is the only format; the reports feed CI logs and
// scripts, not humans.
func New(outputPath string) (Reporter, error) {
	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create report file %s: %w", outputPath, err)
		}
		writer = f
	}
	return &jsonReporter{w: writer}, nil
}

type jsonReporter struct {
	w io.WriteCloser
}

func (r *jsonReporter) Write(report *scenario.Report) error {
	data, err := jsonAPI.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	data = append(data, '\n')
	if _, err := r.w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func (r *jsonReporter) Close() error {
	return r.w.Close()
}
