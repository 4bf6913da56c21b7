// Package runlog provides the step-oriented console output used by
// backup, restore and verify runs, with a structured logrus file log
// behind it. The console shows one symbol-prefixed line per event; the
// file log carries the same events as structured fields and rotates via
// lumberjack.
package runlog

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Console hands out one StepLogger per named phase of a run.
type Console interface {
	Step(name string) StepLogger
}

// StepLogger reports events within one phase.
type StepLogger interface {
	Log(msg string)
	Logf(format string, a ...any)
	Err(msg string)
	Errf(format string, a ...any)
	Progress(p int) StepLogger
}

type runConsole struct {
	out io.Writer
	log *logrus.Logger
	run string
}

// Options configures New. LogFile may be empty to disable the file log.
type Options struct {
	RunID   string
	LogFile string
	Quiet   bool
}

// New builds the console for one run.
func New(opts Options) Console {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if opts.LogFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     90, // days
			Compress:   true,
		})
	} else {
		log.SetOutput(io.Discard)
	}

	out := io.Writer(os.Stdout)
	if opts.Quiet {
		out = io.Discard
	}
	return &runConsole{out: out, log: log, run: opts.RunID}
}

func (c *runConsole) Step(name string) StepLogger {
	return &stepLogger{c: c, step: name, start: time.Now()}
}

type stepLogger struct {
	c        *runConsole
	step     string
	progress int
	start    time.Time
}

func (s *stepLogger) emit(msg string, isErr bool) {
	symbol := "✔️"
	level := logrus.InfoLevel
	if isErr {
		symbol = "⁉️"
		level = logrus.ErrorLevel
	}

	fmt.Fprintf(s.c.out, "%s [%s:%s](%.2fs|%d%%): %s\n",
		symbol, s.c.run, s.step, time.Since(s.start).Seconds(), s.progress, msg)

	s.c.log.WithFields(logrus.Fields{
		"run":      s.c.run,
		"step":     s.step,
		"progress": s.progress,
		"elapsed":  time.Since(s.start).Seconds(),
	}).Log(level, msg)
}

func (s *stepLogger) Progress(p int) StepLogger {
	s.progress = p
	return s
}

func (s *stepLogger) Log(msg string)               { s.emit(msg, false) }
func (s *stepLogger) Logf(format string, a ...any) { s.emit(fmt.Sprintf(format, a...), false) }
func (s *stepLogger) Err(msg string)               { s.emit(msg, true) }
func (s *stepLogger) Errf(format string, a ...any) { s.emit(fmt.Sprintf(format, a...), true) }

// Discard returns a Console that swallows everything. Handy in tests.
func Discard() Console {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &runConsole{out: io.Discard, log: log}
}
