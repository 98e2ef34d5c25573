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
	"sort"

	"github.com/hwsynth/memlibmap/pkg/libmap/emulate"
	"github.com/hwsynth/memlibmap/pkg/memlib"
	"github.com/hwsynth/memlibmap/pkg/netlist"
)

// Result is the outcome of mapping one memory, per spec.md §4.11.
type Result struct {
	// Mapped is false when the soft-logic fallback won (or no hard
	// candidate existed): the memory is left for a downstream FF-mapping
	// pass, per spec.md §4.11.
	Mapped bool
	Config MemConfig
	Cost   float64
}

// Select is pipeline stage 12 of spec.md §2/§4.11: compare the best
// surviving hard candidate against the soft-logic fallback cost and emit.
func Select(lib *memlib.Library, mem *netlist.Memory, mod *netlist.Module, hooks emulate.Hooks, cands []MemConfig) (Result, error) {
	sort.Slice(cands, func(i, j int) bool { return cands[i].Cost < cands[j].Cost })

	style, _ := resolveStyle(mem)
	softOK := softLogicFeasible(mem, style)
	softCost := softLogicCost(mem)

	if len(cands) == 0 {
		if softOK {
			return Result{Mapped: false, Cost: softCost}, nil
		}

		return Result{}, fmt.Errorf("memory %q: no valid mapping and soft-logic is not feasible", mem.Name)
	}

	best := cands[0]

	if softOK && softCost <= best.Cost {
		return Result{Mapped: false, Cost: softCost}, nil
	}

	emit(lib, mem, mod, hooks, &best)

	return Result{Mapped: true, Config: best, Cost: best.Cost}, nil
}

// emit applies spec.md §4.11's emulation-then-instantiate sequence.
func emit(lib *memlib.Library, mem *netlist.Memory, mod *netlist.Module, hooks emulate.Hooks, c *MemConfig) {
	if c.EmuReadFirst {
		hooks.EmulateReadFirst(mod, mem)
	}

	for i := range c.RdPorts {
		r := &c.RdPorts[i]

		switch {
		case r.EmuSync:
			hooks.ExtractRdff(mod, mem, r.Source)
		case r.EmuEn:
			hooks.EmulateRden(mod, mem, r.Source)
		}

		if r.EmuInit || r.EmuArst || r.EmuSrst {
			hooks.EmulateReset(mod, mem, r.Source, r.EmuSrstEnPrio)
		}
	}

	for i := range c.WrPorts {
		w := &c.WrPorts[i]

		for _, other := range w.EmuPrio {
			hooks.EmulatePriority(mod, mem, other, w.Source)
		}
	}

	for i := range c.RdPorts {
		r := &c.RdPorts[i]

		for _, wi := range r.EmuTrans {
			hooks.EmulateTransparency(mod, mem, r.Source, wi)
		}
	}

	rd := &lib.RamDefs[c.RamDef]
	dims := rd.Dims[c.DimsIdx].Val

	// Split every write port's data/enable into c.ReplD per-replica tiles
	// via generate_demux, per spec.md §4.11. With repl_d == 1 the tile is
	// just the port's own signal, unsplit.
	wrData := make([][]netlist.SigSpec, len(c.WrPorts))
	wrEn := make([][]netlist.SigSpec, len(c.WrPorts))

	for i := range c.WrPorts {
		w := &c.WrPorts[i]
		wp := &mem.WrPorts[w.Source]

		if c.ReplD > 1 {
			wrData[i] = hooks.GenerateDemux(mod, nil, wp.Data, c.ReplD)
			wrEn[i] = hooks.GenerateDemux(mod, nil, wp.En, c.ReplD)
		} else {
			wrData[i] = []netlist.SigSpec{wp.Data}
			wrEn[i] = []netlist.SigSpec{wp.En}
		}
	}

	// rdTiles[i][rep] collects read port i's per-replica RD_DATA output,
	// recombined via generate_mux once every replica cell is built.
	rdTiles := make([][]netlist.SigSpec, len(c.RdPorts))
	for i := range c.RdPorts {
		rdTiles[i] = make([]netlist.SigSpec, c.ReplD)
	}

	for rep := 0; rep < c.ReplD; rep++ {
		instantiateCell(lib, mod, rd, &dims, hooks, mem, c, rep, wrData, wrEn, rdTiles)
	}

	if c.ReplD > 1 {
		for i := range c.RdPorts {
			hooks.GenerateMux(mod, rdTiles[i], nil)
		}
	}

	mod.RemoveMemory(mem)
}

func instantiateCell(
	lib *memlib.Library,
	mod *netlist.Module,
	rd *memlib.RamDef,
	dims *memlib.MemoryDimsDef,
	hooks emulate.Hooks,
	mem *netlist.Memory,
	c *MemConfig,
	rep int,
	wrData, wrEn [][]netlist.SigSpec,
	rdTiles [][]netlist.SigSpec,
) {
	cell := &netlist.Cell{
		Type:   rd.ID,
		Params: map[string]netlist.CellParam{},
		Ports:  map[string]netlist.SigSpec{},
	}

	abits := 0
	for (1 << abits) < mem.Size {
		abits++
	}

	cell.Params["ABITS"] = netlist.IntParam(abits)
	cell.Params["BYTE"] = netlist.IntParam(byteValue(lib, c))

	if dims.Tied {
		cell.Params["WIDTH"] = netlist.IntParam(1 << c.BaseWidthLog2)
	}

	for k, v := range c.Opts {
		name := "OPTION_" + k
		if v.IsString {
			cell.Params[name] = netlist.CellParam{IsBits: true}
		} else {
			cell.Params[name] = netlist.IntParam(v.Int)
		}
	}

	for name, cb := range c.ClocksAnyedge {
		cell.Params["CLKPOL_"+name] = netlist.BoolParam(cb.Polarity)
	}

	for name, cb := range c.ClocksPnedge {
		cell.Params["CLKPOL_"+name] = netlist.BoolParam(cb.Flip)
	}

	initData := hooks.GetInitData(mem, 1<<c.BaseWidthLog2)
	cell.Params["INIT"] = netlist.BitsParam(initData)

	for i := range c.WrPorts {
		w := &c.WrPorts[i]
		wp := &mem.WrPorts[w.Source]
		name := rd.Ports[w.PortDefIdx].Val.Names[w.Alias]

		cell.Ports["PORT_"+name+"_ADDR"] = zeroLowBits(wp.Addr, c.BaseWidthLog2)
		cell.Ports["PORT_"+name+"_WR_DATA"] = wrData[i][rep]
		cell.Ports["PORT_"+name+"_WR_EN"] = wrEn[i][rep]
	}

	for i := range c.RdPorts {
		r := &c.RdPorts[i]
		rp := &mem.RdPorts[r.Source]
		name := rd.Ports[r.PortDefIdx].Val.Names[r.Alias]

		cell.Ports["PORT_"+name+"_ADDR"] = zeroLowBits(rp.Addr, c.BaseWidthLog2)

		out := rp.Data
		if c.ReplD > 1 {
			out = mod.NewWire(1 << c.BaseWidthLog2)
		}

		cell.Ports["PORT_"+name+"_RD_DATA"] = out
		rdTiles[i][rep] = out

		if r.EmitEn {
			cell.Ports["PORT_"+name+"_RD_EN"] = rp.En
		}
	}

	mod.AddCell(cell)
}

func zeroLowBits(addr netlist.SigSpec, n int) netlist.SigSpec {
	out := append(netlist.SigSpec(nil), addr...)

	for i := 0; i < n && i < len(out); i++ {
		out[i] = netlist.ConstBit(netlist.S0)
	}

	return out
}
