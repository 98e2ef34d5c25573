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

// HandlePriority is pipeline stage 6a of spec.md §2/§4.7: for each write
// port's priority_mask entry, bind a native wrprio capability or emulate.
func HandlePriority(lib *memlib.Library, mem *netlist.Memory, cands []MemConfig) []MemConfig {
	work := cands

	for wi2 := range mem.WrPorts {
		w2 := &mem.WrPorts[wi2]

		for wi1 := range w2.PriorityMask {
			if !w2.PriorityMask[wi1] {
				continue
			}

			var next []MemConfig

			for _, c := range work {
				next = append(next, bindPriorityPair(lib, wi1, wi2, c)...)
			}

			work = next
		}
	}

	return work
}

func bindPriorityPair(lib *memlib.Library, wi1, wi2 int, c MemConfig) []MemConfig {
	idx2 := findWrPortCfg(&c, wi2)
	if idx2 < 0 {
		return []MemConfig{c}
	}

	idx1 := findWrPortCfg(&c, wi1)
	if idx1 < 0 {
		return []MemConfig{c}
	}

	rd := &lib.RamDefs[c.RamDef]
	pg := rd.Ports[c.WrPorts[idx2].PortDefIdx].Val

	name1 := ""
	if rd.Ports[c.WrPorts[idx1].PortDefIdx].Val.Names != nil {
		name1 = rd.Ports[c.WrPorts[idx1].PortDefIdx].Val.Names[c.WrPorts[idx1].Alias]
	}

	var out []MemConfig
	anyFree := false

	for _, pc := range pg.WrPrio {
		if pc.Val != name1 {
			continue
		}

		nc := c.Clone()
		if !nc.CommitCapability(pc.Opts, pc.PortOpts) {
			continue
		}

		if FreeCapture(c.Opts, pc.Opts, pc.PortOpts) {
			anyFree = true
		}

		out = append(out, nc)
	}

	if !anyFree {
		nc := c.Clone()
		nc.WrPorts[idx2].EmuPrio = append(nc.WrPorts[idx2].EmuPrio, wi1)
		out = append(out, nc)
	}

	return out
}

// HandleRdInit is pipeline stage 6b: power-on init values.
func HandleRdInit(lib *memlib.Library, mem *netlist.Memory, cands []MemConfig) []MemConfig {
	return handleResetVal(lib, mem, cands, memlib.ResetInit, func(rp *netlist.ReadPort) bool {
		return rp.InitValue != nil && !rp.InitValue.IsFullyUndef()
	}, func(cfg *RdPortConfig) { cfg.EmuInit = true })
}

// HandleRdArst is pipeline stage 6c: asynchronous reset.
func HandleRdArst(lib *memlib.Library, mem *netlist.Memory, cands []MemConfig) []MemConfig {
	return handleResetVal(lib, mem, cands, memlib.ResetAsync, func(rp *netlist.ReadPort) bool {
		return rp.Arst.State != netlist.Sx
	}, func(cfg *RdPortConfig) { cfg.EmuArst = true })
}

// HandleRdSrst is pipeline stage 6d: synchronous reset, plus the
// en-vs-srst priority fixup of spec.md §4.7's final paragraph.
func HandleRdSrst(lib *memlib.Library, mem *netlist.Memory, cands []MemConfig) []MemConfig {
	work := handleResetVal(lib, mem, cands, memlib.ResetSync, func(rp *netlist.ReadPort) bool {
		return rp.Srst.State != netlist.Sx
	}, func(cfg *RdPortConfig) { cfg.EmuSrst = true })

	var out []MemConfig

	for _, c := range work {
		out = append(out, applySrstModes(lib, mem, c)...)
	}

	return out
}

func applySrstModes(lib *memlib.Library, mem *netlist.Memory, c MemConfig) []MemConfig {
	results := []MemConfig{c}

	for ri := range mem.RdPorts {
		rp := &mem.RdPorts[ri]
		if rp.Srst.State == netlist.Sx {
			continue
		}

		idx := findRdPortCfg(&c, ri)
		if idx < 0 || results[0].RdPorts[idx].EmuSrst {
			continue
		}

		var next []MemConfig

		for _, cur := range results {
			next = append(next, applySrstModeForPort(lib, rp, ri, cur)...)
		}

		results = next
	}

	return results
}

func applySrstModeForPort(lib *memlib.Library, rp *netlist.ReadPort, ri int, c MemConfig) []MemConfig {
	idx := findRdPortCfg(&c, ri)
	if idx < 0 {
		return []MemConfig{c}
	}

	if c.RdPorts[idx].EmuSync || c.RdPorts[idx].EmuEn {
		return []MemConfig{c}
	}

	rd := &lib.RamDefs[c.RamDef]
	pg := rd.Ports[c.RdPorts[idx].PortDefIdx].Val

	enIsConst1 := rp.En.IsConstOne()

	var out []MemConfig

	for _, mc := range pg.RdSrstMode {
		nc := c.Clone()
		if !nc.CommitCapability(mc.Opts, mc.PortOpts) {
			continue
		}

		if !enIsConst1 {
			disagrees := (mc.Val == memlib.SrstOverEn) == rp.CeOverSrst
			if mc.Val != memlib.SrstAny && disagrees {
				nc.RdPorts[idx].EmuSrstEnPrio = true
			}
		}

		out = append(out, nc)
	}

	if len(out) == 0 {
		out = append(out, c)
	}

	return out
}

func handleResetVal(lib *memlib.Library, mem *netlist.Memory, cands []MemConfig, kind memlib.ResetKind, wants func(*netlist.ReadPort) bool, emulate func(*RdPortConfig)) []MemConfig {
	work := cands

	for ri := range mem.RdPorts {
		rp := &mem.RdPorts[ri]
		if !wants(rp) {
			continue
		}

		var next []MemConfig

		for _, c := range work {
			next = append(next, bindResetVal(lib, ri, kind, c, emulate)...)
		}

		work = next
	}

	return work
}

func bindResetVal(lib *memlib.Library, ri int, kind memlib.ResetKind, c MemConfig, emulate func(*RdPortConfig)) []MemConfig {
	idx := findRdPortCfg(&c, ri)
	if idx < 0 {
		return []MemConfig{c}
	}

	if c.RdPorts[idx].EmuSync || c.RdPorts[idx].EmuEn {
		return []MemConfig{c}
	}

	anyFree := false

	out := bindOneResetVal(lib, idx, kind, c, &anyFree)

	if !anyFree {
		nc := c.Clone()
		emulate(&nc.RdPorts[idx])
		out = append(out, nc)
	}

	return out
}

func bindOneResetVal(lib *memlib.Library, idx int, kind memlib.ResetKind, c MemConfig, anyFree *bool) []MemConfig {
	var out []MemConfig

	for _, rv := range capabilitiesFor(lib, &c, idx, kind) {
		nc := c.Clone()
		if !nc.CommitCapability(rv.Opts, rv.PortOpts) {
			continue
		}

		if !applyRstVal(&nc, rv.Val) {
			continue
		}

		if FreeCapture(c.Opts, rv.Opts, rv.PortOpts) {
			*anyFree = true
		}

		out = append(out, nc)
	}

	return out
}

// capabilitiesFor looks up the rdrstval capabilities of the requested kind
// on the port-def bound to c.RdPorts[idx].
func capabilitiesFor(lib *memlib.Library, c *MemConfig, idx int, kind memlib.ResetKind) []memlib.Capability[memlib.ResetValDef] {
	if idx < 0 {
		return nil
	}

	rd := &lib.RamDefs[c.RamDef]
	pg := rd.Ports[c.RdPorts[idx].PortDefIdx].Val

	var out []memlib.Capability[memlib.ResetValDef]

	for _, rv := range pg.RdRstVal {
		if rv.Val.Kind == kind {
			out = append(out, rv)
		}
	}

	return out
}

// applyRstVal implements spec.md §4.7's apply_rstval: Zero/None always
// succeed (no option to commit beyond whatever the capability's own Opts
// carried); Named records the reset-value's name in the candidate's
// named-resetval dictionary and also always succeeds. The binding stores
// no value, so two ports that use the same name are not checked for
// agreeing reset values.
func applyRstVal(c *MemConfig, def memlib.ResetValDef) bool {
	if def.ValKind != memlib.RstValNamed {
		return true
	}

	if _, ok := c.ResetVals[def.Name]; !ok {
		c.ResetVals[def.Name] = ResetValBinding{}
	}

	return true
}
