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

// InitSegment is one contiguous run of initial-content bits, per spec.md §3.2.
type InitSegment struct {
	// Offset is the word address of the first word in this segment.
	Offset int
	// Data holds Size * Width bits, word 0 first.
	Data SigSpec
}

// WritePort is one abstract write port of spec.md §3.2.
type WritePort struct {
	Name string
	// ClkEnable is false for an asynchronous write port (unsupported;
	// see spec.md §4.4/§7).
	ClkEnable   bool
	Clk         Bit
	ClkPolarity bool
	// En carries one enable bit per (sub-word, source bit); length is
	// Width << WideLog2.
	En   SigSpec
	Addr SigSpec
	Data SigSpec
	// WideLog2 is log2 of how many source words this port's data/en
	// span (Verilog wide ports packing multiple words per address).
	WideLog2 int
	// PriorityMask[w] is true iff this port must observe write port w's
	// value in case of a same-cycle collision (out-prioritise it).
	PriorityMask []bool
}

// ReadPort is one abstract read port of spec.md §3.2.
type ReadPort struct {
	Name        string
	ClkEnable   bool
	Clk         Bit
	ClkPolarity bool
	En          SigSpec
	Addr        SigSpec
	Data        SigSpec
	WideLog2    int
	InitValue   SigSpec
	Arst        Bit
	ArstValue   SigSpec
	Srst        Bit
	SrstValue   SigSpec
	// CeOverSrst: when both a clock-enable and a sync reset are present,
	// true means "enable gates the reset too" (CE has priority).
	CeOverSrst bool
	// TransparencyMask[w] / CollisionXMask[w]: same-cycle semantics
	// versus write port w, per spec.md §4.6.
	TransparencyMask []bool
	CollisionXMask   []bool
}

// Memory is the abstract memory array of spec.md §3.2.
type Memory struct {
	Name        string
	Width       int
	Size        int
	StartOffset int
	Inits       []InitSegment
	WrPorts     []WritePort
	RdPorts     []ReadPort
	// Attributes mirrors the RTL front-end attributes used for style
	// resolution in spec.md §4.1 (ram_style, ramstyle, logic_block, ...).
	Attributes map[string]AttrValue
}

// AttrValue is a front-end attribute value: either an integer or a string,
// matching the Const used for attributes in the original spec's host
// environment.
type AttrValue struct {
	IsString bool
	Str      string
	Int      int
}

// HasAttribute reports presence of a named attribute.
func (m *Memory) HasAttribute(name string) (AttrValue, bool) {
	v, ok := m.Attributes[name]
	return v, ok
}

// BoolAttribute reports a boolean-style attribute (present and nonzero/true).
func (m *Memory) BoolAttribute(name string) bool {
	v, ok := m.Attributes[name]
	if !ok {
		return false
	}

	if v.IsString {
		return v.Str != "" && v.Str != "0"
	}

	return v.Int != 0
}

// HasNonXInit reports whether any init segment has at least one defined
// bit (hasNonX), and whether any defined bit is a literal 1 (hasOne) —
// spec.md §4.3's has_nonx / has_one.
func (m *Memory) HasNonXInit() (hasNonX, hasOne bool) {
	for _, seg := range m.Inits {
		if seg.Data.IsFullyUndef() {
			continue
		}

		hasNonX = true

		for _, b := range seg.Data {
			if b.State == S1 {
				hasOne = true
			}
		}
	}

	return hasNonX, hasOne
}

// EmulateReadFirstOK reports whether this memory's requested write-then-read
// semantics permits a read-first rewrite (spec.md §4.6). A memory qualifies
// when every (write, read) pair sharing a clock requests the transparent
// ("new data") read, i.e. there is no write port that a read port needs to
// observe as non-transparent — rewriting to read-before-write can only add
// transparency, never remove a requested non-transparency.
func (m *Memory) EmulateReadFirstOK() bool {
	for ri := range m.RdPorts {
		rp := &m.RdPorts[ri]
		if !rp.ClkEnable {
			continue
		}

		for wi := range m.WrPorts {
			wp := &m.WrPorts[wi]
			if !wp.ClkEnable || !sameClock(rp.Clk, rp.ClkPolarity, wp.Clk, wp.ClkPolarity) {
				continue
			}

			if wi < len(rp.CollisionXMask) && rp.CollisionXMask[wi] {
				continue
			}

			if wi < len(rp.TransparencyMask) && !rp.TransparencyMask[wi] {
				return false
			}
		}
	}

	return true
}

func sameClock(a Bit, apol bool, b Bit, bpol bool) bool {
	return a == b && apol == bpol
}
