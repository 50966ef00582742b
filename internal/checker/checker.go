// Package checker implements the status check: parse the command line, fetch
// the last check result of one Icinga 2 object and report it as plugin output.
package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nmslite/check-icinga2-object-status/internal/config"
	"github.com/nmslite/check-icinga2-object-status/internal/icinga2"
	"github.com/nmslite/check-icinga2-object-status/internal/plugin"
)

// Run executes the check for args (without the program name), writes the
// status line to stdout and returns the process exit code.
func Run(ctx context.Context, stdout, stderr io.Writer, args []string) int {
	opts, err := config.Parse(args)
	if err != nil {
		if config.IsHelp(err) {
			fmt.Fprintln(stdout, err.Error())
			return plugin.StateOK.ExitCode()
		}
		return unknown(stdout, err.Error())
	}

	if opts.Version {
		fmt.Fprintln(stdout, config.VersionString())
		return plugin.StateOK.ExitCode()
	}

	if err := opts.Validate(); err != nil {
		return unknown(stdout, err.Error())
	}

	logger := config.InitLogger(stderr, opts.LoggingConfig())

	checker, err := New(opts, logger)
	if err != nil {
		return unknown(stdout, err.Error())
	}
	defer checker.Close()

	return checker.Check(ctx, stdout).ExitCode()
}

func unknown(w io.Writer, msg string) int {
	_ = plugin.WriteError(w, msg)
	return plugin.StateUnknown.ExitCode()
}

// Checker fetches and reports the state of one object
type Checker struct {
	client *icinga2.Client
	ref    icinga2.ObjectRef
	logger *slog.Logger
}

// New creates a checker from validated options
func New(opts *config.Options, logger *slog.Logger) (*Checker, error) {
	creds, err := opts.Credentials()
	if err != nil {
		return nil, err
	}

	if opts.Insecure {
		logger.Warn("TLS certificate verification disabled")
	}

	client, err := icinga2.NewClient(icinga2.ClientConfig{
		BaseURL:  opts.BaseURL(),
		Username: creds.Username,
		Password: creds.Password,
		Insecure: opts.Insecure,
		CAFile:   opts.CAFile,
		Timeout:  opts.Timeout,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}

	return &Checker{
		client: client,
		ref:    icinga2.ObjectRef{Host: opts.Hostname, Service: opts.Service},
		logger: logger.With("component", "checker"),
	}, nil
}

// Check writes exactly one line to w and returns the state to exit with
func (c *Checker) Check(ctx context.Context, w io.Writer) plugin.State {
	result, err := c.client.LastCheckResult(ctx, c.ref)
	if err != nil {
		return c.fail(w, err)
	}

	state, err := plugin.StateFromExitStatus(result.ExitStatus)
	if err != nil {
		return c.fail(w, fmt.Errorf("%s: %w", c.ref, err))
	}

	line := plugin.Line{
		Host:            c.ref.Host,
		Service:         c.ref.Service,
		Output:          result.Output,
		PerformanceData: result.PerformanceData,
	}
	if err := plugin.WriteLine(w, line); err != nil {
		c.logger.Error("Failed to report check result", "error", err)
		return plugin.StateUnknown
	}

	c.logger.Info("Check finished", "object", c.ref.String(), "state", state.String())
	return state
}

// fail reports err as UNKNOWN. Non-200 responses print the body on one line.
func (c *Checker) fail(w io.Writer, err error) plugin.State {
	msg := err.Error()

	var apiErr *icinga2.APIError
	switch {
	case errors.As(err, &apiErr):
		msg = apiErr.Body
		c.logger.Warn("Icinga 2 api rejected the request", "status", apiErr.StatusCode)
	case errors.Is(err, icinga2.ErrObjectNotFound):
		c.logger.Warn("Object not found", "object", c.ref.String())
	default:
		c.logger.Warn("Check failed", "error", err)
	}

	if werr := plugin.WriteError(w, msg); werr != nil {
		c.logger.Error("Failed to report check error", "error", werr)
	}
	return plugin.StateUnknown
}

// Close releases the api client
func (c *Checker) Close() {
	c.client.Close()
}
