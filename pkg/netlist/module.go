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
package netlist

// Cell is one instantiated library primitive or piece of emulation glue,
// as emitted by spec.md §4.11.
type Cell struct {
	// Type names the library RAM definition (or an emulation primitive
	// marker such as "$__libmap_mux"/"$__libmap_demux") this cell
	// instantiates.
	Type string
	// Params carries named parameters (ABITS, BYTE, WIDTH, INIT,
	// OPTION_*, CLKPOL_*, ...), per spec.md §6.2.
	Params map[string]CellParam
	// Ports carries named port connections (ADDR, WR_DATA, RD_DATA, ...).
	Ports map[string]SigSpec
}

// CellParam is a named cell parameter: an integer, a bit vector, or a
// boolean flag.
type CellParam struct {
	IsBits bool
	Bits   SigSpec
	Int    int
	Bool   bool
}

// IntParam constructs an integer cell parameter.
func IntParam(v int) CellParam { return CellParam{Int: v} }

// BoolParam constructs a boolean cell parameter.
func BoolParam(v bool) CellParam { return CellParam{Bool: v} }

// BitsParam constructs a bit-vector cell parameter (e.g. INIT data).
func BitsParam(v SigSpec) CellParam { return CellParam{IsBits: true, Bits: v} }

// Module is the narrow "module handle" surface of spec.md §3.2/§5: the
// broader synthesis flow that owns elaboration, scheduling and the rest of
// the design is explicitly out of scope (spec.md §1); this is only the
// handful of operations the mapping engine and its emulation primitives
// actually need against the module that contains the memory being mapped.
type Module struct {
	Name    string
	Cells   []*Cell
	nextNet int
}

// NewModule constructs an empty module handle around one memory.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// AddCell appends a newly-instantiated cell to the module.
func (m *Module) AddCell(c *Cell) {
	m.Cells = append(m.Cells, c)
}

// NewWire allocates a fresh internal net, used by emulation primitives that
// need intermediate signals (mux/demux outputs, extracted FF state, ...).
func (m *Module) NewWire(width int) SigSpec {
	out := make(SigSpec, width)

	for i := range out {
		out[i] = WireBit(m.nextNet)
		m.nextNet++
	}

	return out
}

// RemoveMemory finalizes the lowering of the abstract memory this module
// handle was constructed for (spec.md §4.11: "Finally drop the abstract
// memory"). Left as a hook rather than acting on an owned Memory value
// because ownership of the memory lives with the (out-of-scope) broader
// synthesis flow.
func (m *Module) RemoveMemory(mem *Memory) {
	_ = mem
}
