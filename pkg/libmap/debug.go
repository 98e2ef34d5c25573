// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package libmap

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/hwsynth/memlibmap/pkg/memlib"
	"github.com/hwsynth/memlibmap/pkg/util/termio"
)

// capToTerminalWidth bounds every column of p to a share of the current
// terminal width, mirroring the teacher's own term.GetSize use for sizing
// interactive output; falls back to leaving the table unbounded when
// stdout isn't a terminal (e.g. piped into a file or CI log).
func capToTerminalWidth(p *termio.RamTable, cols uint) {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return
	}

	if cols == 0 {
		return
	}

	p.SetMaxWidths(uint(w) / cols)
}

// LibraryTable renders a one-row-per-RamDef summary table, used by
// -debug-geom to show what the library parsed into before any memory is
// mapped against it.
func LibraryTable(lib *memlib.Library) *termio.RamTable {
	const cols = 5

	p := termio.NewRamTable(cols, uint(len(lib.RamDefs)+1))
	p.SetRow(0, "id", "kind", "ports", "dims", "styles")

	for i, rd := range lib.RamDefs {
		p.SetRow(uint(i+1),
			rd.ID,
			rd.Kind.String(),
			fmt.Sprintf("%d", len(rd.Ports)),
			fmt.Sprintf("%d", len(rd.Dims)),
			fmt.Sprintf("%d", len(rd.Style)),
		)
	}

	capToTerminalWidth(p, cols)

	return p
}

// CandidateTable renders one row per surviving candidate (spec.md §4.9's
// geometry search trace). The CLI does not call it, since it maps no
// memories. The lowest-cost candidate — the one Select compares against
// the soft-logic fallback — is highlighted green.
func CandidateTable(lib *memlib.Library, cands []MemConfig) *termio.RamTable {
	const cols = 4

	p := termio.NewRamTable(cols, uint(len(cands)+1))
	p.SetRow(0, "ram_def", "score_emu", "repl_d", "cost")

	cheapest := -1

	for i, c := range cands {
		if cheapest == -1 || c.Cost < cands[cheapest].Cost {
			cheapest = i
		}

		p.SetRow(uint(i+1),
			lib.RamDefs[c.RamDef].ID,
			fmt.Sprintf("%d", c.ScoreEmu),
			fmt.Sprintf("%d", c.ReplD),
			fmt.Sprintf("%.2f", c.Cost),
		)
	}

	if cheapest >= 0 {
		p.HighlightRow(uint(cheapest+1), termio.CostEscape(true))
	}

	capToTerminalWidth(p, cols)

	return p
}
