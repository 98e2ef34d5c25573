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
	"github.com/hwsynth/memlibmap/pkg/memlib"
	"github.com/hwsynth/memlibmap/pkg/netlist"
)

// Cost weights of spec.md §4.8.
const (
	FactorMux   = 0.5
	FactorDemux = 0.5
	FactorEmu   = 2.0
)

// ScoreEmulation is pipeline stage 7 of spec.md §2/§4.8: compute the
// integer emulation score and the minimum port-replication factor.
func ScoreEmulation(lib *memlib.Library, mem *netlist.Memory, cands []MemConfig) []MemConfig {
	out := make([]MemConfig, len(cands))

	for i, c := range cands {
		nc := c.Clone()
		nc.ScoreEmu = emuScore(mem, &nc)
		nc.ReplPort = replPort(lib, &nc)
		out[i] = nc
	}

	return out
}

func emuScore(mem *netlist.Memory, c *MemConfig) int {
	score := 0

	if c.EmuReadFirst {
		score += 3 * len(mem.WrPorts)
	}

	for _, w := range c.WrPorts {
		score += len(w.EmuPrio)
	}

	for _, r := range c.RdPorts {
		score += 3 * len(r.EmuTrans)

		if r.EmuEn {
			score += 3
		}

		if r.EmuInit {
			score += 2
		}

		if r.EmuArst {
			score += 2
		}

		if r.EmuSrst {
			score += 2
		}

		if r.EmuSrstEnPrio {
			score++
		}

		if !r.Shared {
			score++
		}
	}

	return score
}

// replPort computes max_i ceil(rd_usage_i / (slots_i - wr_usage_i)) over
// port-groups with unshared read demand, per spec.md §4.8.
func replPort(lib *memlib.Library, c *MemConfig) int {
	rd := &lib.RamDefs[c.RamDef]

	wrUsage := map[int]int{}
	rdUsage := map[int]int{}

	for _, w := range c.WrPorts {
		wrUsage[w.PortDefIdx]++
	}

	for _, r := range c.RdPorts {
		if !r.Shared {
			rdUsage[r.PortDefIdx]++
		}
	}

	best := 1

	for pdi, demand := range rdUsage {
		slots := len(rd.Ports[pdi].Val.Names)
		free := slots - wrUsage[pdi]

		if free <= 0 {
			free = 1
		}

		n := (demand + free - 1) / free
		if n > best {
			best = n
		}
	}

	return best
}
