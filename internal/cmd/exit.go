package cmd

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
)

// ExitWithCode logs msg with the foundry metadata for exitCode and exits
// with that code. A nil logger reports to stderr instead.
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if logger == nil || !ok {
		ExitWithCodeStderr(exitCode, msg, err)
		return
	}

	fields := []zap.Field{
		zap.Int("exit_code", info.Code),
		zap.String("exit_name", info.Name),
		zap.String("exit_category", info.Category),
	}
	if envelope := findEnvelope(err); envelope != nil {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("correlation_id", envelope.CorrelationID),
		)
		if cause := envelopeCause(envelope); cause != "" {
			fields = append(fields, zap.String("error_cause", cause))
		}
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	logger.Error(msg, fields...)
	os.Exit(info.Code)
}

// ExitWithCodeStderr reports to stderr and exits. Used before the CLI
// logger exists.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	code := int(exitCode)
	lines := describeFailure(msg, err)
	if info, ok := foundry.GetExitCodeInfo(exitCode); ok {
		code = info.Code
		lines = append(lines, fmt.Sprintf("Exit Code: %d (%s) - %s", info.Code, info.Name, info.Description))
	} else {
		lines = append(lines, fmt.Sprintf("Exit Code: %d", code))
	}
	for _, line := range lines {
		_, _ = fmt.Fprintln(os.Stderr, line)
	}
	os.Exit(code)
}

// describeFailure renders a failure for a terminal. Envelopes wrapped with
// fmt.Errorf are found and shown with their code and cause.
func describeFailure(msg string, err error) []string {
	if err == nil {
		return []string{"FATAL: " + msg}
	}
	envelope := findEnvelope(err)
	if envelope == nil {
		return []string{fmt.Sprintf("FATAL: %s: %v", msg, err)}
	}

	lines := []string{fmt.Sprintf("FATAL: %s [%s]: %s", msg, envelope.Code, envelope.Message)}
	if cause := envelopeCause(envelope); cause != "" {
		lines = append(lines, "Cause: "+cause)
	}
	if envelope.CorrelationID != "" {
		lines = append(lines, "Correlation: "+envelope.CorrelationID)
	}
	return lines
}

func findEnvelope(err error) *errors.ErrorEnvelope {
	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) {
		return envelope
	}
	return nil
}

func envelopeCause(envelope *errors.ErrorEnvelope) string {
	if cause, ok := envelope.Original.(error); ok && cause != nil {
		return cause.Error()
	}
	if wrapped, ok := envelope.Context["wrapped_error"].(string); ok {
		return wrapped
	}
	return ""
}
