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

import "testing"

func Test_LibraryTable_And_CandidateTable(t *testing.T) {
	lib := parseLib(t, `
		ram distributed $rom8x4 {
			abits 3 dbits 4 cost 1;
			init any;
			port ar "R" {
			}
		}
	`)

	lt := LibraryTable(lib)
	if lt.Height() != 2 {
		t.Fatalf("expected a header row plus one ram_def row, got height %d", lt.Height())
	}

	cands := []MemConfig{NewMemConfig(0)}
	cands[0].ScoreEmu = 1
	cands[0].ReplD = 1
	cands[0].Cost = 1.5

	ct := CandidateTable(lib, cands)
	if ct.Height() != 2 {
		t.Fatalf("expected a header row plus one candidate row, got height %d", ct.Height())
	}

	if got := ct.Get(0, 1); got != lib.RamDefs[0].ID {
		t.Errorf("expected ram_def column to read %q, got %q", lib.RamDefs[0].ID, got)
	}
}
