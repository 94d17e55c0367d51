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

package logging

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestTeeToFile(t *testing.T) {
	var console bytes.Buffer
	prev := SetOutput(&console)
	defer SetOutput(prev)

	fileName := filepath.Join(t.TempDir(), "georender.log")
	if err := LogAlsoToFile(fileName); err != nil {
		t.Fatal(err)
	}
	LogPrintf("tile %d of %d\n", 3, 7)
	fmt.Fprintf(Writer(), "done\n")
	if err := LogSync(); err != nil {
		t.Fatal(err)
	}
	if err := Close(); err != nil {
		t.Fatal(err)
	}

	want := "tile 3 of 7\ndone\n"
	if got := console.String(); got != want {
		t.Errorf("console=%q; want %q", got, want)
	}
	data, err := os.ReadFile(fileName)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != want {
		t.Errorf("file=%q; want %q", got, want)
	}

	LogPrintln("console only")
	if got := console.String(); got != want+"console only\n" {
		t.Errorf("console=%q after close", got)
	}
}
