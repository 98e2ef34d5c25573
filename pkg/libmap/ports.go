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

	"github.com/bits-and-blooms/bitset"
	"github.com/hwsynth/memlibmap/pkg/memlib"
	"github.com/hwsynth/memlibmap/pkg/netlist"
)

// aliasUsage marks, per (port-def index, alias index), which slots have
// already been claimed by a previously-bound port on this candidate — the
// bookkeeping spec.md §4.4 calls "slots used ... counted". A bit is enough
// since freeAlias only ever asks "is this slot free", never "how many
// times".
func aliasUsage(c *MemConfig, portDefIdx int) *bitset.BitSet {
	usage := &bitset.BitSet{}

	for _, w := range c.WrPorts {
		if w.PortDefIdx == portDefIdx {
			usage.Set(uint(w.Alias))
		}
	}

	for _, r := range c.RdPorts {
		if r.PortDefIdx == portDefIdx {
			usage.Set(uint(r.Alias))
		}
	}

	return usage
}

func freeAlias(rd *memlib.RamDef, portDefIdx int, usage *bitset.BitSet) (int, bool) {
	pg := rd.Ports[portDefIdx].Val

	for i := range pg.Names {
		if !usage.Test(uint(i)) {
			return i, true
		}
	}

	return 0, false
}

// BindWritePorts is pipeline stage 3 of spec.md §2/§4.4.
func BindWritePorts(lib *memlib.Library, mem *netlist.Memory, cands []MemConfig) ([]MemConfig, error) {
	for _, w := range mem.WrPorts {
		if !w.ClkEnable {
			return nil, fmt.Errorf("memory %q: write port %q is asynchronous; no library kind supports this", mem.Name, w.Name)
		}
	}

	if len(mem.WrPorts) == 0 {
		var out []MemConfig

		for _, c := range cands {
			if lib.RamDefs[c.RamDef].PruneRom {
				continue
			}

			out = append(out, c)
		}

		return out, nil
	}

	work := cands

	for wi := range mem.WrPorts {
		var next []MemConfig

		for _, c := range work {
			rd := &lib.RamDefs[c.RamDef]

			for pdi, pgCap := range rd.Ports {
				pg := pgCap.Val
				if pg.Kind != memlib.Sw && pg.Kind != memlib.Arsw && pg.Kind != memlib.Srsw {
					continue
				}

				usage := aliasUsage(&c, pdi)

				alias, ok := freeAlias(rd, pdi, usage)
				if !ok {
					continue
				}

				base := c.Clone()
				if !base.CommitCapability(pgCap.Opts, pgCap.PortOpts) {
					continue
				}

				next = append(next, bindWriteClocks(base, mem, wi, pdi, alias, pg)...)
			}
		}

		work = next

		// No candidate left: Select falls back to soft logic, or reports
		// that no valid mapping exists when soft logic is not feasible.
		if len(work) == 0 {
			return nil, nil
		}
	}

	return work, nil
}

func bindWriteClocks(base MemConfig, mem *netlist.Memory, wi, pdi, alias int, pg memlib.PortGroupDef) []MemConfig {
	wp := &mem.WrPorts[wi]

	var out []MemConfig

	for _, clkCap := range pg.Clock {
		nc := base.Clone()
		if !nc.CommitCapability(clkCap.Opts, clkCap.PortOpts) {
			continue
		}

		if clkCap.Val.Kind != memlib.Anyedge {
			pol := wp.ClkPolarity == (clkCap.Val.Kind == memlib.Posedge)
			if !applyClock(&nc, clkCap.Val, wp.Clk, pol) {
				continue
			}
		} else if !applyClock(&nc, clkCap.Val, wp.Clk, wp.ClkPolarity) {
			continue
		}

		nc.WrPorts = append(nc.WrPorts, WrPortConfig{
			Source:     wi,
			PortDefIdx: pdi,
			Alias:      alias,
		})

		out = append(out, nc)
	}

	return out
}

// BindReadPorts is pipeline stage 4 of spec.md §2/§4.5.
func BindReadPorts(lib *memlib.Library, mem *netlist.Memory, cc *netlist.XMuxCanonicalizer, oc *oracleCache, cands []MemConfig) ([]MemConfig, error) {
	work := cands

	for ri := range mem.RdPorts {
		var next []MemConfig

		for _, c := range work {
			next = append(next, bindUnsharedRead(lib, mem, ri, c)...)
			next = append(next, bindSharedRead(lib, mem, cc, oc, ri, c)...)
		}

		work = next

		// No candidate left: Select falls back to soft logic, or reports
		// that no valid mapping exists when soft logic is not feasible.
		if len(work) == 0 {
			return nil, nil
		}
	}

	return work, nil
}

func bindUnsharedRead(lib *memlib.Library, mem *netlist.Memory, ri int, c MemConfig) []MemConfig {
	rp := &mem.RdPorts[ri]
	rd := &lib.RamDefs[c.RamDef]

	var out []MemConfig

	for pdi, pgCap := range rd.Ports {
		pg := pgCap.Val
		if !pg.Kind.IsRead() {
			continue
		}

		usage := aliasUsage(&c, pdi)

		alias, ok := freeAlias(rd, pdi, usage)
		if !ok {
			continue
		}

		base := c.Clone()
		if !base.CommitCapability(pgCap.Opts, pgCap.PortOpts) {
			continue
		}

		if pg.Kind.IsSyncRead() {
			if !rp.ClkEnable {
				continue
			}

			out = append(out, bindUnsharedSyncRead(base, mem, ri, pdi, alias, pg)...)
		} else {
			nc := base.Clone()

			cfg := RdPortConfig{Source: ri, PortDefIdx: pdi, Alias: alias, WrPort: -1, EmuSync: rp.ClkEnable}
			nc.RdPorts = append(nc.RdPorts, cfg)
			out = append(out, nc)
		}
	}

	return out
}

func bindUnsharedSyncRead(base MemConfig, mem *netlist.Memory, ri, pdi, alias int, pg memlib.PortGroupDef) []MemConfig {
	rp := &mem.RdPorts[ri]

	var out []MemConfig

	for _, clkCap := range pg.Clock {
		afterClk := base.Clone()
		if !afterClk.CommitCapability(clkCap.Opts, clkCap.PortOpts) {
			continue
		}

		pol := rp.ClkPolarity
		if clkCap.Val.Kind != memlib.Anyedge {
			pol = rp.ClkPolarity == (clkCap.Val.Kind == memlib.Posedge)
		}

		if !applyClock(&afterClk, clkCap.Val, rp.Clk, pol) {
			continue
		}

		for _, enCap := range pg.RdEn {
			nc := afterClk.Clone()
			if !nc.CommitCapability(enCap.Opts, enCap.PortOpts) {
				continue
			}

			emuEn := enCap.Val == memlib.RdEnNone && !rp.En.IsConstOne()
			if enCap.Val == memlib.RdEnWriteImplies || enCap.Val == memlib.RdEnWriteExcludes {
				// Unshared read ports have no write pairing to test
				// implication/exclusion against; those variants only make
				// sense on a shared binding (spec.md §4.5).
				continue
			}

			nc.RdPorts = append(nc.RdPorts, RdPortConfig{
				Source:     ri,
				PortDefIdx: pdi,
				Alias:      alias,
				WrPort:     -1,
				RdEn:       enCap.Val,
				EmitEn:     enCap.Val != memlib.RdEnNone,
				EmuEn:      emuEn,
			})

			out = append(out, nc)
		}
	}

	return out
}

func bindSharedRead(lib *memlib.Library, mem *netlist.Memory, cc *netlist.XMuxCanonicalizer, oc *oracleCache, ri int, c MemConfig) []MemConfig {
	rp := &mem.RdPorts[ri]
	rd := &lib.RamDefs[c.RamDef]

	var out []MemConfig

	for wci := range c.WrPorts {
		wc := &c.WrPorts[wci]
		pg := rd.Ports[wc.PortDefIdx].Val

		if pg.Kind != memlib.Arsw && pg.Kind != memlib.Srsw {
			continue
		}

		if isShared(&c, wci) {
			continue
		}

		wp := &mem.WrPorts[wc.Source]
		if !cc.AddrCompatible(wp, rp) {
			continue
		}

		if pg.Kind == memlib.Srsw {
			if !rp.ClkEnable || rp.Clk != wp.Clk || rp.ClkPolarity != wp.ClkPolarity {
				continue
			}

			for _, enCap := range pg.RdEn {
				nc, ok := sharedSrswCandidate(c, rp, oc, ri, wci, wc.Alias, enCap)
				if ok {
					out = append(out, nc)
				}
			}
		} else {
			nc := c.Clone()
			nc.RdPorts = append(nc.RdPorts, RdPortConfig{
				Source:     ri,
				PortDefIdx: wc.PortDefIdx,
				Alias:      wc.Alias,
				Shared:     true,
				WrPort:     wci,
			})
			out = append(out, nc)
		}
	}

	return out
}

func isShared(c *MemConfig, wrIdx int) bool {
	for _, r := range c.RdPorts {
		if r.Shared && r.WrPort == wrIdx {
			return true
		}
	}

	return false
}

func sharedSrswCandidate(c MemConfig, rp *netlist.ReadPort, oc *oracleCache, ri, wci, alias int, enCap memlib.Capability[memlib.RdEnKind]) (MemConfig, bool) {
	nc := c.Clone()
	if !nc.CommitCapability(enCap.Opts, enCap.PortOpts) {
		return MemConfig{}, false
	}

	w := nc.WrPorts[wci].Source

	emuEn := false

	switch enCap.Val {
	case memlib.RdEnNone:
		emuEn = !rp.En.IsConstOne()
	case memlib.RdEnAny:
		// no constraint
	case memlib.RdEnWriteImplies:
		emuEn = !oc.wrImpliesRd(w, ri)
	case memlib.RdEnWriteExcludes:
		if !oc.wrExcludesRd(w, ri) {
			return MemConfig{}, false
		}
	}

	nc.RdPorts = append(nc.RdPorts, RdPortConfig{
		Source:     ri,
		PortDefIdx: nc.WrPorts[wci].PortDefIdx,
		Alias:      alias,
		Shared:     true,
		WrPort:     wci,
		RdEn:       enCap.Val,
		EmitEn:     enCap.Val != memlib.RdEnNone,
		EmuEn:      emuEn,
	})

	return nc, true
}
