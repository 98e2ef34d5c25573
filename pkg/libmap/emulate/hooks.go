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

// Package emulate provides the low-level emulation primitives the mapping
// engine calls once a configuration is selected (spec.md §1): these are
// deliberately narrow, syntactic rewrites of a netlist.Module, not a
// general-purpose RTL transformation library.
package emulate

import "github.com/hwsynth/memlibmap/pkg/netlist"

// Hooks is the set of low-level emulation primitives spec.md §1 calls out
// as external collaborators: "the core calls them once the configuration
// is chosen". Mapping consumers supply their own Hooks backed by whatever
// broader synthesis flow owns the netlist; NetlistHooks below is a
// self-contained implementation good enough to drive the mapper against a
// bare netlist.Module without any other passes.
type Hooks interface {
	EmulateReadFirst(mod *netlist.Module, mem *netlist.Memory)
	EmulateRden(mod *netlist.Module, mem *netlist.Memory, rdIdx int)
	ExtractRdff(mod *netlist.Module, mem *netlist.Memory, rdIdx int) netlist.SigSpec
	EmulateReset(mod *netlist.Module, mem *netlist.Memory, rdIdx int, srstEnPrio bool)
	EmulatePriority(mod *netlist.Module, mem *netlist.Memory, w1, w2 int)
	EmulateTransparency(mod *netlist.Module, mem *netlist.Memory, rdIdx, wrIdx int)
	GenerateMux(mod *netlist.Module, inputs []netlist.SigSpec, sel netlist.SigSpec) netlist.SigSpec
	GenerateDemux(mod *netlist.Module, sel netlist.SigSpec, data netlist.SigSpec, n int) []netlist.SigSpec
	GetInitData(mem *netlist.Memory, width int) netlist.SigSpec
}

// NetlistHooks is the default Hooks implementation: it adds
// "$__libmap_*" marker cells (and fresh wires) to the supplied
// netlist.Module for downstream passes to lower, rather than emitting any
// particular target's primitive library.
type NetlistHooks struct{}

// EmulateReadFirst marks mem for read-first emulation (same-cycle reads
// see the pre-write value), per spec.md §4.6/§4.11. It only adds a
// marker cell, and leaves the write ports unchanged, so downstream passes
// can find and lower it; the
// actual bypass-suppression logic belongs to the broader synthesis flow
// this package deliberately does not reimplement.
func (NetlistHooks) EmulateReadFirst(mod *netlist.Module, mem *netlist.Memory) {
	mod.AddCell(&netlist.Cell{
		Type:   "$__libmap_read_first",
		Params: map[string]netlist.CellParam{"MEMORY": netlist.BitsParam(nil)},
		Ports:  map[string]netlist.SigSpec{},
	})
}

// EmulateRden emulates a read port's clock-enable in soft logic: a gated
// register feeding RD_DATA only when the enable was asserted on the prior
// cycle.
func (NetlistHooks) EmulateRden(mod *netlist.Module, mem *netlist.Memory, rdIdx int) {
	rp := &mem.RdPorts[rdIdx]

	mod.AddCell(&netlist.Cell{
		Type: "$__libmap_emu_rden",
		Ports: map[string]netlist.SigSpec{
			"EN":   rp.En,
			"DATA": rp.Data,
		},
	})
}

// ExtractRdff pulls the output register a synchronous-read-on-async-cell
// emulation needs, returning the signal the library cell's async data
// output should be registered into.
func (NetlistHooks) ExtractRdff(mod *netlist.Module, mem *netlist.Memory, rdIdx int) netlist.SigSpec {
	rp := &mem.RdPorts[rdIdx]

	return mod.NewWire(rp.Data.Width())
}

// EmulateReset adds the soft-logic reset mux a read port's init/async/sync
// reset needs when the library cell offers none.
func (NetlistHooks) EmulateReset(mod *netlist.Module, mem *netlist.Memory, rdIdx int, srstEnPrio bool) {
	rp := &mem.RdPorts[rdIdx]

	mod.AddCell(&netlist.Cell{
		Type:   "$__libmap_emu_reset",
		Params: map[string]netlist.CellParam{"EN_OVER_SRST": netlist.BoolParam(srstEnPrio)},
		Ports: map[string]netlist.SigSpec{
			"DATA": rp.Data,
		},
	})
}

// EmulatePriority wires a soft override so write port w1's data wins over
// w2's on a same-cycle collision, when the library cannot natively order
// them.
func (NetlistHooks) EmulatePriority(mod *netlist.Module, mem *netlist.Memory, w1, w2 int) {
	a := &mem.WrPorts[w1]
	b := &mem.WrPorts[w2]

	mod.AddCell(&netlist.Cell{
		Type: "$__libmap_emu_prio",
		Ports: map[string]netlist.SigSpec{
			"A": a.En,
			"B": b.En,
		},
	})
}

// EmulateTransparency adds the soft bypass mux a (read, write) pair needs
// when no native wrtrans capability could be bound.
func (NetlistHooks) EmulateTransparency(mod *netlist.Module, mem *netlist.Memory, rdIdx, wrIdx int) {
	rp := &mem.RdPorts[rdIdx]
	wp := &mem.WrPorts[wrIdx]

	mod.AddCell(&netlist.Cell{
		Type: "$__libmap_emu_trans",
		Ports: map[string]netlist.SigSpec{
			"RD_DATA": rp.Data,
			"WR_DATA": wp.Data,
			"WR_EN":   wp.En,
		},
	})
}

// GenerateMux recombines the per-replica outputs of a wide-port split
// (spec.md §4.11's repl_d > 1 case: a memory wider than the selected
// library word, spread across several physical cells) into one signal:
// the marker cell's A port carries each replica's tile concatenated in
// order and Y is a fresh wire of the same width. sel is recorded on the
// marker cell for callers that need a real time-multiplexed mux instead
// of a static concatenation; this narrow model always takes every input.
func (NetlistHooks) GenerateMux(mod *netlist.Module, inputs []netlist.SigSpec, sel netlist.SigSpec) netlist.SigSpec {
	if len(inputs) == 0 {
		return nil
	}

	var all netlist.SigSpec
	for _, in := range inputs {
		all = append(all, in...)
	}

	out := mod.NewWire(all.Width())

	mod.AddCell(&netlist.Cell{
		Type: "$__libmap_mux",
		Ports: map[string]netlist.SigSpec{
			"A": all,
			"S": sel,
			"Y": out,
		},
	})

	return out
}

// GenerateDemux splits data into n equal-width tiles (the last zero-padded
// if data's width doesn't divide evenly), the wiring repl_d > 1 needs to
// hand each replica cell its own WR_DATA/WR_EN slice per spec.md §4.11.
// sel is recorded on the marker cells for callers that need real
// address-based selection rather than a static partition.
func (NetlistHooks) GenerateDemux(mod *netlist.Module, sel netlist.SigSpec, data netlist.SigSpec, n int) []netlist.SigSpec {
	if n <= 0 {
		return nil
	}

	tileWidth := (data.Width() + n - 1) / n
	out := make([]netlist.SigSpec, n)

	for i := range out {
		tile := make(netlist.SigSpec, tileWidth)

		for j := 0; j < tileWidth; j++ {
			idx := i*tileWidth + j
			if idx < data.Width() {
				tile[j] = data[idx]
			} else {
				tile[j] = netlist.ConstBit(netlist.S0)
			}
		}

		out[i] = tile

		mod.AddCell(&netlist.Cell{
			Type: "$__libmap_demux",
			Params: map[string]netlist.CellParam{
				"INDEX": netlist.IntParam(i),
			},
			Ports: map[string]netlist.SigSpec{
				"S":    sel,
				"DATA": data,
				"Y":    tile,
			},
		})
	}

	return out
}

// GetInitData returns the slice of a memory's init contents needed for one
// physical cell instance's INIT parameter.
func (NetlistHooks) GetInitData(mem *netlist.Memory, width int) netlist.SigSpec {
	out := make(netlist.SigSpec, mem.Size*width)

	for i := range out {
		out[i] = netlist.ConstBit(netlist.Sx)
	}

	for _, seg := range mem.Inits {
		for i, b := range seg.Data {
			idx := seg.Offset*width + i
			if idx >= 0 && idx < len(out) {
				out[idx] = b
			}
		}
	}

	return out
}
