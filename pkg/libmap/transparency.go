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

// HandleTransparency is pipeline stage 5 of spec.md §2/§4.6.
func HandleTransparency(lib *memlib.Library, mem *netlist.Memory, cands []MemConfig) []MemConfig {
	work := cands

	if mem.EmulateReadFirstOK() {
		var forked []MemConfig

		forked = append(forked, work...)

		for _, c := range work {
			if hasSharedRead(&c) {
				continue
			}

			nc := c.Clone()
			nc.EmuReadFirst = true
			forked = append(forked, nc)
		}

		work = forked
	}

	for wi := range mem.WrPorts {
		wp := &mem.WrPorts[wi]

		var next []MemConfig

		for _, c := range work {
			next = append(next, handleTransparencyForWrite(lib, mem, wp, wi, c)...)
		}

		work = next
	}

	return work
}

func hasSharedRead(c *MemConfig) bool {
	for _, r := range c.RdPorts {
		if r.Shared {
			return true
		}
	}

	return false
}

func handleTransparencyForWrite(lib *memlib.Library, mem *netlist.Memory, wp *netlist.WritePort, wi int, c MemConfig) []MemConfig {
	results := []MemConfig{c}

	for ri := range mem.RdPorts {
		rp := &mem.RdPorts[ri]

		var next []MemConfig

		for _, cur := range results {
			next = append(next, handleTransparencyPair(lib, mem, wp, wi, rp, ri, cur)...)
		}

		results = next
	}

	return results
}

func handleTransparencyPair(lib *memlib.Library, mem *netlist.Memory, wp *netlist.WritePort, wi int, rp *netlist.ReadPort, ri int, c MemConfig) []MemConfig {
	if !wp.ClkEnable || !rp.ClkEnable || wp.Clk != rp.Clk || wp.ClkPolarity != rp.ClkPolarity {
		return []MemConfig{c}
	}

	if wi < len(rp.CollisionXMask) && rp.CollisionXMask[wi] && !c.EmuReadFirst {
		return []MemConfig{c}
	}

	transparent := c.EmuReadFirst || (wi < len(rp.TransparencyMask) && rp.TransparencyMask[wi])

	rdIdx := findRdPortCfg(&c, ri)
	if rdIdx < 0 {
		return []MemConfig{c}
	}

	if c.RdPorts[rdIdx].EmuSync {
		if transparent {
			nc := c.Clone()
			nc.RdPorts[rdIdx].EmuTrans = append(nc.RdPorts[rdIdx].EmuTrans, wi)

			return []MemConfig{nc}
		}

		return []MemConfig{c}
	}

	wantKind := memlib.TransOld
	if transparent {
		wantKind = memlib.TransNew
	}

	rd := &lib.RamDefs[c.RamDef]
	wrIdx := findWrPortCfg(&c, wi)

	var out []MemConfig
	anyFree := false

	if wrIdx >= 0 {
		pg := rd.Ports[c.WrPorts[wrIdx].PortDefIdx].Val
		shared := isShared(&c, wrIdx)

		for _, tc := range pg.WrTrans {
			if tc.Val.Kind != wantKind {
				continue
			}

			if !transTargetMatches(tc.Val, shared, ri, mem) {
				continue
			}

			nc := c.Clone()
			if !nc.CommitCapability(tc.Opts, tc.PortOpts) {
				continue
			}

			if FreeCapture(c.Opts, tc.Opts, tc.PortOpts) {
				anyFree = true
			}

			out = append(out, nc)
		}
	}

	if transparent && !anyFree {
		nc := c.Clone()
		nc.RdPorts[rdIdx].EmuTrans = append(nc.RdPorts[rdIdx].EmuTrans, wi)
		out = append(out, nc)
	}

	if len(out) == 0 {
		out = append(out, c)
	}

	return out
}

func transTargetMatches(def memlib.WrTransDef, shared bool, ri int, mem *netlist.Memory) bool {
	switch def.TargetKind {
	case memlib.TargetSelf:
		return shared
	case memlib.TargetOther:
		return !shared
	case memlib.TargetNamed:
		return ri < len(mem.RdPorts) && mem.RdPorts[ri].Name == def.TargetName
	}

	return false
}

func findRdPortCfg(c *MemConfig, source int) int {
	for i, r := range c.RdPorts {
		if r.Source == source {
			return i
		}
	}

	return -1
}

func findWrPortCfg(c *MemConfig, source int) int {
	for i, w := range c.WrPorts {
		if w.Source == source {
			return i
		}
	}

	return -1
}
