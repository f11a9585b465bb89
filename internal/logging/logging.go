// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the log level and an optional rotated log file.
type Config struct {
	Level string
	// File, when set, receives a copy of every entry. It is rotated at
	// MaxSizeMB.
	File      string
	MaxSizeMB int
	NoColors  bool
	Caller    bool
	Output    io.Writer
}

// Logger is a logrus logger together with the file it may be writing.
type Logger struct {
	*logrus.Logger
	file *lumberjack.Logger
}

// New creates a logger from cfg.
func New(cfg Config) (*Logger, error) {
	level := logrus.InfoLevel
	if cfg.Level != "" {
		l, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "log level %q", cfg.Level)
		}
		level = l
	}

	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&formatter.Formatter{
		NoColors:        cfg.NoColors,
		TimestampFormat: "02 Jan 06 - 15:04:05",
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, s[len(s)-1])
		},
	})
	log.SetReportCaller(cfg.Caller)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	writers := []io.Writer{out}

	l := &Logger{Logger: log}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, errors.Wrap(err, "log directory")
		}
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		l.file = &lumberjack.Logger{
			Filename:   cfg.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    maxSize,
			MaxAge:     7,
			MaxBackups: 3,
		}
		writers = append(writers, l.file)
	}
	log.SetOutput(io.MultiWriter(writers...))

	return l, nil
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
