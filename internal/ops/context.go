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

// Package ops provides the execution context and the drivers that render
// larger areas from a renderer: a pool of renderer clones, the concurrent
// tiled mosaic, and saving results by file suffix.
package ops

import (
	"fmt"
	"io"
	"runtime"

	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"
)

// An execution context for rendering jobs
type Context struct {
	Log        io.Writer
	MemoryMB   int    // memory.TotalMemory()/1024/1024
	CacheMB    int    // MemoryMB/4, tile cache budget
	MaxThreads int    `json:"maxThreads"`
	CPU        string // brand name
}

func NewContext(log io.Writer) *Context {
	memoryMB := int(memory.TotalMemory() / 1024 / 1024)
	threads := runtime.GOMAXPROCS(0)
	if cores := cpuid.CPU.LogicalCores; cores > 0 && cores < threads {
		threads = cores
	}
	return &Context{
		Log:        log,
		MemoryMB:   memoryMB,
		CacheMB:    memoryMB / 4,
		MaxThreads: threads,
		CPU:        cpuid.CPU.BrandName,
	}
}

func (c *Context) String() string {
	return fmt.Sprintf("CPU %s, %d threads, %d MB memory, %d MB tile cache", c.CPU, c.MaxThreads, c.MemoryMB, c.CacheMB)
}

// Writes to the context log, if any
func (c *Context) Logf(format string, args ...interface{}) {
	if c.Log != nil {
		fmt.Fprintf(c.Log, format, args...)
	}
}
