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

	"github.com/hwsynth/memlibmap/pkg/memlib"
	"github.com/hwsynth/memlibmap/pkg/netlist"
)

// StyleKind is the outcome of resolving a memory's style attributes,
// per spec.md §4.1.
type StyleKind int

// The style-resolution outcomes.
const (
	StyleAuto StyleKind = iota
	StyleLogic
	StyleDistributed
	StyleBlock
	StyleHuge
	StyleNotLogic
)

// styleAttrs lists the attributes scanned in priority order, per spec.md §4.1.
var styleAttrs = []string{"ram_block", "ram_style", "ramstyle", "syn_ramstyle"}

// resolveStyle implements spec.md §4.1: scan the memory's style attributes
// in order, decide a StyleKind, and return any explicit named style tag.
func resolveStyle(mem *netlist.Memory) (kind StyleKind, namedStyle string) {
	if mem.BoolAttribute("logic_block") {
		kind = StyleLogic
	}

	for _, attr := range styleAttrs {
		v, ok := mem.HasAttribute(attr)
		if !ok {
			continue
		}

		if !v.IsString {
			if v.Int == 1 {
				return StyleNotLogic, ""
			}

			continue
		}

		switch v.Str {
		case "auto":
			return StyleAuto, ""
		case "logic", "registers":
			return StyleLogic, ""
		case "distributed":
			return StyleDistributed, ""
		case "block", "ebr":
			return StyleBlock, ""
		case "huge", "ultra":
			return StyleHuge, ""
		default:
			return StyleNotLogic, v.Str
		}
	}

	return kind, ""
}

// softLogicFeasible reports whether a pure soft-logic ("FF array") mapping
// is an option at all, per spec.md §4.1.
func softLogicFeasible(mem *netlist.Memory, kind StyleKind) bool {
	if kind != StyleAuto && kind != StyleLogic {
		return false
	}

	if len(mem.WrPorts) == 0 {
		return true
	}

	clk := mem.WrPorts[0].Clk
	pol := mem.WrPorts[0].ClkPolarity

	for _, w := range mem.WrPorts {
		if !w.ClkEnable || w.Clk != clk || w.ClkPolarity != pol {
			return false
		}
	}

	return true
}

// softLogicCost is spec.md §4.1's `width * size`.
func softLogicCost(mem *netlist.Memory) float64 {
	return float64(mem.Width) * float64(mem.Size)
}

// kindMatches reports whether a RamDef's kind satisfies the requested
// StyleKind, honouring the -no-auto-* suppression flags of spec.md §4.2.
func kindMatches(rdKind memlib.RamKind, style StyleKind, opts memlib.PassOptions) bool {
	switch style {
	case StyleDistributed:
		return rdKind == memlib.Distributed
	case StyleBlock:
		return rdKind == memlib.Block
	case StyleHuge:
		return rdKind == memlib.Huge
	case StyleAuto, StyleNotLogic:
		switch rdKind {
		case memlib.Distributed:
			return !opts.NoAutoDistributed
		case memlib.Block:
			return !opts.NoAutoBlock
		case memlib.Huge:
			return !opts.NoAutoHuge
		}
	}

	return false
}

// FilterStyle is pipeline stage 1 of spec.md §2/§4.2: retain candidates
// whose library entry matches the requested kind (or explicit style tag).
func FilterStyle(lib *memlib.Library, mem *netlist.Memory, cands []MemConfig) ([]MemConfig, error) {
	kind, namedStyle := resolveStyle(mem)

	var out []MemConfig

	if namedStyle != "" {
		for _, c := range cands {
			rd := &lib.RamDefs[c.RamDef]

			for _, st := range rd.Style {
				if st.Val != namedStyle {
					continue
				}

				nc := c.Clone()
				if !nc.CommitCapability(st.Opts, st.PortOpts) {
					continue
				}

				out = append(out, nc)

				break
			}
		}

		if len(out) == 0 {
			return nil, fmt.Errorf("memory %q: no RAM in library offers style %q", mem.Name, namedStyle)
		}

		return out, nil
	}

	for _, c := range cands {
		rd := &lib.RamDefs[c.RamDef]
		if kindMatches(rd.Kind, kind, lib.Opts) {
			out = append(out, c.Clone())
		}
	}

	if len(out) == 0 && kind != StyleAuto {
		return nil, fmt.Errorf("memory %q: no RAM of the requested kind is available", mem.Name)
	}

	return out, nil
}
