// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package logging provides the singleton log writer. It writes to stdout, and
// optionally to a file as well. It does not add prefixes, or force newlines.
package logging

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu        sync.Mutex
	stdout    io.Writer = os.Stdout
	logFile   *bufio.Writer
	logFileOS *os.File
)

// Enables logging to the given file in addition to stdout, closing any previous log file
func LogAlsoToFile(fileName string) error {
	mu.Lock()
	defer mu.Unlock()
	if err := closeFile(); err != nil {
		return err
	}
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", fileName, err)
	}
	logFileOS, logFile = f, bufio.NewWriter(f)
	return nil
}

// Flushes and closes the log file, if any. Further output goes to stdout only
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	return closeFile()
}

func closeFile() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Flush()
	if cerr := logFileOS.Close(); err == nil {
		err = cerr
	}
	logFile, logFileOS = nil, nil
	return err
}

// Redirects console output, for tests. Returns the previous writer
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := stdout
	stdout = w
	return prev
}

func LogPrint(args ...interface{}) (n int, err error) {
	return Writer().Write([]byte(fmt.Sprint(args...)))
}

func LogPrintln(args ...interface{}) (n int, err error) {
	return Writer().Write([]byte(fmt.Sprintln(args...)))
}

func LogPrintf(format string, args ...interface{}) (n int, err error) {
	return Writer().Write([]byte(fmt.Sprintf(format, args...)))
}

// Logs the message, closes the log file and exits with status 1
func LogFatalf(format string, args ...interface{}) {
	LogPrintf(format, args...)
	Close()
	os.Exit(1)
}

// Flushes the log file to disk
func LogSync() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	if err := logFile.Flush(); err != nil {
		return err
	}
	return logFileOS.Sync()
}

type tee struct{}

// Writes to the console, and to the log file if enabled
func (tee) Write(p []byte) (n int, err error) {
	mu.Lock()
	defer mu.Unlock()
	n, err = stdout.Write(p)
	if err != nil || logFile == nil {
		return n, err
	}
	return logFile.Write(p)
}

// Returns a writer for the singleton log, for use as a Context or Renderer log
func Writer() io.Writer {
	return tee{}
}
