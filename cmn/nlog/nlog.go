// Package nlog is the StreamLab process logger: leveled, timestamped,
// safe for concurrent use from every node task without a global lock on
// the data path (each call takes its own short-held mutex around the
// underlying writer only).
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

var sevChar = [...]byte{'I', 'W', 'E'}

var (
	mu           sync.Mutex
	out          = os.Stdout
	errOut       = os.Stderr
	title        string
	minSeverity  = sevInfo
	redactFnames = map[string]struct{}{"nlog": {}}
)

// SetTitle tags every subsequent line with a short component name, e.g.
// "pipeline" or "pool", the way a multi-binary repo disambiguates logs
// coming from different subsystems sharing one process.
func SetTitle(s string) { mu.Lock(); title = s; mu.Unlock() }

// SetQuiet raises the minimum severity to Warning, silencing Infof/Infoln.
func SetQuiet(quiet bool) {
	mu.Lock()
	if quiet {
		minSeverity = sevWarn
	} else {
		minSeverity = sevInfo
	}
	mu.Unlock()
}

func InfoDepth(depth int, args ...any)    { log(sevInfo, depth+1, "", args...) }
func Infoln(args ...any)                  { log(sevInfo, 1, "", args...) }
func Infof(format string, args ...any)    { log(sevInfo, 1, format, args...) }
func Warningln(args ...any)               { log(sevWarn, 1, "", args...) }
func Warningf(format string, args ...any) { log(sevWarn, 1, format, args...) }
func ErrorDepth(depth int, args ...any)   { log(sevErr, depth+1, "", args...) }
func Errorln(args ...any)                 { log(sevErr, 1, "", args...) }
func Errorf(format string, args ...any)   { log(sevErr, 1, format, args...) }

func log(sev severity, depth int, format string, args ...any) {
	mu.Lock()
	skip := sev < minSeverity
	mu.Unlock()
	if skip {
		return
	}
	line := render(sev, depth+1, format, args...)
	mu.Lock()
	defer mu.Unlock()
	if sev >= sevErr {
		errOut.WriteString(line)
		return
	}
	out.WriteString(line)
}

func render(sev severity, depth int, format string, args ...any) string {
	var b strings.Builder
	b.WriteByte(sevChar[sev])
	b.WriteByte(' ')
	b.WriteString(time.Now().Format("15:04:05.000000"))
	b.WriteByte(' ')
	if title != "" {
		b.WriteByte('[')
		b.WriteString(title)
		b.WriteString("] ")
	}
	if _, fn, ln, ok := runtime.Caller(depth + 1); ok {
		fn = filepath.Base(fn)
		if _, redact := redactFnames[strings.TrimSuffix(fn, ".go")]; !redact {
			b.WriteString(fn)
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(ln))
			b.WriteByte(' ')
		}
	}
	if format == "" {
		fmt.Fprintln(&b, args...)
	} else {
		fmt.Fprintf(&b, format, args...)
		if !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Flush is a no-op placeholder kept for call-site parity with callers
// that run under -tags mono and expect a buffered logger; this logger
// writes synchronously and has nothing to flush.
func Flush(...bool) {}

// only used by tests that want deterministic output
func SetOutput(infoW, errW *os.File) {
	mu.Lock()
	out, errOut = infoW, errW
	mu.Unlock()
}
