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

// Package libmap is the mapping engine: it explores the space of ways one
// abstract memory can be implemented by a parsed RAM library and rewrites
// the cheapest feasible one into library-cell instances plus whatever
// emulation circuitry the library cannot provide natively.
package libmap

import (
	"github.com/hwsynth/memlibmap/pkg/memlib"
	"github.com/hwsynth/memlibmap/pkg/netlist"
)

// ClockBinding is one committed named-clock entry, per spec.md §4.12.
type ClockBinding struct {
	Signal   netlist.Bit
	Polarity bool
	Flip     bool
}

// ResetValBinding is one committed named reset-value entry.
type ResetValBinding struct {
	Signal netlist.SigSpec
}

// WrPortConfig is the bound configuration of one abstract write port,
// per spec.md §3.3.
type WrPortConfig struct {
	Source int // index into Memory.WrPorts

	PortDefIdx int // index into RamDef.Ports
	Alias      int // which name within PortGroupDef.Names
	WidthIdx   int // index into PortGroupDef.Width

	EmuPrio []int // write-port sources this port's priority is emulated over
}

// RdPortConfig is the bound configuration of one abstract read port.
type RdPortConfig struct {
	Source int // index into Memory.RdPorts

	PortDefIdx int
	Alias      int
	WidthIdx   int

	Shared bool
	WrPort int // index into cfg.WrPorts, -1 if unshared

	RdEn    memlib.RdEnKind
	EmitEn  bool

	EmuSync        bool
	EmuEn          bool
	EmuInit        bool
	EmuArst        bool
	EmuSrst        bool
	EmuSrstEnPrio  bool
	EmuTrans       []int // write-port sources
}

// MemConfig is one point in the mapping search space, per spec.md §3.3.
// Candidates are never mutated in place once forked — every stage produces
// a fresh slice of MemConfig built from Clone()s of the survivors of the
// previous stage, matching the copy-on-fork discipline of spec.md §5/§9.
type MemConfig struct {
	RamDef int // index into Library.RamDefs
	Opts   memlib.Options

	WrPorts []WrPortConfig
	RdPorts []RdPortConfig

	ClocksAnyedge map[string]ClockBinding
	ClocksPnedge  map[string]ClockBinding
	ResetVals     map[string]ResetValBinding

	EmuReadFirst bool

	// Geometry, filled by stages 8-10.
	DimsIdx       int
	ByteIdx       int
	BaseWidthLog2 int
	Swizzle       []int
	ReplD         int
	ReplPort      int

	ScoreEmu   int
	ScoreMux   float64
	ScoreDemux float64
	Cost       float64
}

// NewMemConfig creates the seed candidate for one library RamDef, per stage
// 1 of spec.md §2: "one [candidate] per library entry".
func NewMemConfig(ramDef int) MemConfig {
	return MemConfig{
		RamDef:        ramDef,
		Opts:          memlib.Options{},
		ClocksAnyedge: map[string]ClockBinding{},
		ClocksPnedge:  map[string]ClockBinding{},
		ResetVals:     map[string]ResetValBinding{},
	}
}

// Clone performs the copy-on-fork deep copy a candidate needs before a
// stage commits a new choice onto it.
func (c MemConfig) Clone() MemConfig {
	out := c
	out.Opts = c.Opts.Clone()

	out.WrPorts = make([]WrPortConfig, len(c.WrPorts))
	for i, w := range c.WrPorts {
		out.WrPorts[i] = w
		out.WrPorts[i].EmuPrio = append([]int(nil), w.EmuPrio...)
	}

	out.RdPorts = make([]RdPortConfig, len(c.RdPorts))
	for i, r := range c.RdPorts {
		out.RdPorts[i] = r
		out.RdPorts[i].EmuTrans = append([]int(nil), r.EmuTrans...)
	}

	out.ClocksAnyedge = cloneClockMap(c.ClocksAnyedge)
	out.ClocksPnedge = cloneClockMap(c.ClocksPnedge)

	out.ResetVals = make(map[string]ResetValBinding, len(c.ResetVals))
	for k, v := range c.ResetVals {
		out.ResetVals[k] = v
	}

	out.Swizzle = append([]int(nil), c.Swizzle...)

	return out
}

func cloneClockMap(m map[string]ClockBinding) map[string]ClockBinding {
	out := make(map[string]ClockBinding, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}

// ApplyOpts commits src into the candidate's accumulated option set,
// reporting false (leaving the candidate unusable) on disagreement.
func (c *MemConfig) ApplyOpts(src memlib.Options) bool {
	return memlib.Apply(c.Opts, src)
}

// CommitCapability commits a capability's option requirements into the
// candidate. A Capability[T] carries two option sets (memlib.Capability)
// because the declaration it came from can be wrapped by `option` blocks
// (opts) and by `portoption` blocks (portOpts) — both must hold
// simultaneously for the capability to remain usable, so both are checked
// for conflict and merged into the candidate's one option set.
func (c *MemConfig) CommitCapability(opts, portOpts memlib.Options) bool {
	if memlib.Conflict(opts, portOpts) {
		return false
	}

	return c.ApplyOpts(opts) && c.ApplyOpts(portOpts)
}

// FreeCapture reports whether committing this capability against before
// (the candidate's option set prior to the commit) required no new
// option — the "free capture" test of spec.md §4.6/§4.7, generalised to
// both of a capability's option sets.
func FreeCapture(before memlib.Options, opts, portOpts memlib.Options) bool {
	return memlib.Applied(before, opts) && memlib.Applied(before, portOpts)
}
