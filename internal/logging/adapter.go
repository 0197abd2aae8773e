package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// PrintfLogger adapts an slog.Logger to the Printf/Println style logger
// interface expected by third-party clients (for example the IMAP client's
// ErrorLog). Every line is emitted as one structured record at a fixed level.
type PrintfLogger struct {
	logger *slog.Logger
	level  slog.Level
}

// NewPrintfLogger creates a PrintfLogger writing at level.
// If logger is nil, slog.Default() is used.
func NewPrintfLogger(logger *slog.Logger, level slog.Level) *PrintfLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &PrintfLogger{logger: logger, level: level}
}

// Printf formats according to a format specifier and logs the result.
func (p *PrintfLogger) Printf(format string, v ...interface{}) {
	p.log(fmt.Sprintf(format, v...))
}

// Println logs its operands separated by spaces.
func (p *PrintfLogger) Println(v ...interface{}) {
	p.log(fmt.Sprintln(v...))
}

func (p *PrintfLogger) log(msg string) {
	p.logger.Log(context.Background(), p.level, strings.TrimRight(msg, "\n"))
}

// Logger returns the underlying slog.Logger for direct access when needed.
func (p *PrintfLogger) Logger() *slog.Logger {
	return p.logger
}
