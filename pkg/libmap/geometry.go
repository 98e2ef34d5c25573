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

// SplitGeometry is pipeline stage 8 of spec.md §2/§4.9: multiply candidates
// by each library dims-variant, byte-width, and per-port width-def.
func SplitGeometry(lib *memlib.Library, cands []MemConfig) []MemConfig {
	var out []MemConfig

	for _, c := range cands {
		rd := &lib.RamDefs[c.RamDef]

		for di, ddef := range rd.Dims {
			withDims := c.Clone()
			if !withDims.CommitCapability(ddef.Opts, ddef.PortOpts) {
				continue
			}

			withDims.DimsIdx = di

			out = append(out, splitByte(lib, rd, withDims)...)
		}
	}

	return forkPortWidths(lib, out)
}

func splitByte(lib *memlib.Library, rd *memlib.RamDef, c MemConfig) []MemConfig {
	if len(rd.Byte) == 0 {
		return []MemConfig{c}
	}

	var out []MemConfig

	for bi, bdef := range rd.Byte {
		nc := c.Clone()
		if !nc.CommitCapability(bdef.Opts, bdef.PortOpts) {
			continue
		}

		nc.ByteIdx = bi + 1 // 0 means "unset"; see byteValue.
		out = append(out, nc)
	}

	return out
}

// byteValue resolves a candidate's chosen byte-width value, or 0 ("use
// unit width") if the library declares no byte capability.
func byteValue(lib *memlib.Library, c *MemConfig) int {
	if c.ByteIdx == 0 {
		return 0
	}

	rd := &lib.RamDefs[c.RamDef]

	return rd.Byte[c.ByteIdx-1].Val
}

func forkPortWidths(lib *memlib.Library, cands []MemConfig) []MemConfig {
	if len(cands) == 0 {
		return cands
	}

	work := cands
	nWr := len(work[0].WrPorts)
	nRd := len(work[0].RdPorts)

	for wi := 0; wi < nWr; wi++ {
		work = forkOnePortWidth(lib, work, wi, true)
	}

	for ri := 0; ri < nRd; ri++ {
		work = forkOnePortWidth(lib, work, ri, false)
	}

	return work
}

func forkOnePortWidth(lib *memlib.Library, cands []MemConfig, idx int, isWrite bool) []MemConfig {
	var out []MemConfig

	for _, c := range cands {
		rd := &lib.RamDefs[c.RamDef]

		var pdi int
		if isWrite {
			pdi = c.WrPorts[idx].PortDefIdx
		} else {
			pdi = c.RdPorts[idx].PortDefIdx
		}

		pg := rd.Ports[pdi].Val

		for wdi, wdef := range pg.Width {
			nc := c.Clone()
			if !nc.CommitCapability(wdef.Opts, wdef.PortOpts) {
				continue
			}

			if isWrite {
				nc.WrPorts[idx].WidthIdx = wdi
			} else {
				nc.RdPorts[idx].WidthIdx = wdi
			}

			out = append(out, nc)
		}
	}

	return out
}

type preGeomKey struct {
	ramDef int
	dims   int
	byte   int
	ports  string
}

func preGeomKeyOf(c *MemConfig) preGeomKey {
	desc := ""

	for _, w := range c.WrPorts {
		desc += fmt.Sprintf("w%d:%d:%d;", w.PortDefIdx, w.WidthIdx, w.Alias)
	}

	for _, r := range c.RdPorts {
		desc += fmt.Sprintf("r%d:%d:%d:%v:%d;", r.PortDefIdx, r.WidthIdx, r.Alias, r.Shared, r.WrPort)
	}

	return preGeomKey{ramDef: c.RamDef, dims: c.DimsIdx, byte: c.ByteIdx, ports: desc}
}

// PreGeometryDedup is pipeline stage 9 of spec.md §2/§4.10 ("Pre"):
// collapse candidates sharing (ram_def, dims_def, byte, per-port binding)
// keeping the one with lowest score_emu.
func PreGeometryDedup(cands []MemConfig) []MemConfig {
	best := map[preGeomKey]MemConfig{}

	for _, c := range cands {
		k := preGeomKeyOf(&c)

		if cur, ok := best[k]; !ok || c.ScoreEmu < cur.ScoreEmu {
			best[k] = c
		}
	}

	out := make([]MemConfig, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}

	return out
}

// OptimizeGeometry is pipeline stage 10 of spec.md §2/§4.9: for each
// candidate, try every admissible base-width in the dims progression and
// keep whichever yields the lowest cost.
//
// §4.9's hard_wide_mask/emu_wide_mask address-mux emulation (greedily
// widening ports built from several packed source words, wide_log2 > 0)
// is not implemented: no write/read port binding in this package ever
// populates WideLog2 (see netlist.WritePort/ReadPort), and addr_compatible
// (ports.go) never consults it either, so there is no wide-port signal
// for a wide-bit search to act on. SPEC_FULL.md declares packed wide-port
// support (wide_log2 > 0) a Non-goal for that reason. What IS implemented
// is §4.9's cost search proper: rather than stopping at the first dims
// entry wide enough for every port's minimum width, every entry at or
// above that minimum is tried — building its own swizzle, repl_d and
// score_mux/score_demux — and the lowest-cost result wins, exactly as
// "keep the minimum-cost configuration seen" asks. A wider dbits entry
// can legitimately beat a narrower one once its lower repl_d outweighs
// its higher per-word cost, which picking the first admissible entry
// would have missed.
func OptimizeGeometry(lib *memlib.Library, mem *netlist.Memory, cands []MemConfig) []MemConfig {
	out := make([]MemConfig, len(cands))

	for i, c := range cands {
		out[i] = optimizeOne(lib, mem, c)
	}

	return out
}

func optimizeOne(lib *memlib.Library, mem *netlist.Memory, c MemConfig) MemConfig {
	rd := &lib.RamDefs[c.RamDef]
	dims := rd.Dims[c.DimsIdx].Val

	minWidth := portMinWidth(lib, &c)
	if minWidth < mem.Width {
		minWidth = mem.Width
	}

	var best MemConfig

	haveBest := false

	for _, base := range dims.Dbits {
		if base < minWidth {
			continue
		}

		cand := geometryForBase(lib, mem, c, &dims, base)

		if !haveBest || cand.Cost < best.Cost {
			best = cand
			haveBest = true
		}
	}

	if !haveBest {
		// No dims entry reaches every port's minimum width on its own;
		// fall back to the widest available, and geometryForBase's ReplD
		// spreads the memory's width across several cells. No port
		// max-width check is made.
		base := dims.Dbits[len(dims.Dbits)-1]
		best = geometryForBase(lib, mem, c, &dims, base)
	}

	return best
}

func geometryForBase(lib *memlib.Library, mem *netlist.Memory, c MemConfig, dims *memlib.MemoryDimsDef, base int) MemConfig {
	byteW := byteValue(lib, &c)

	effectiveByte := byteW
	if effectiveByte == 0 || effectiveByte > base {
		effectiveByte = base
	}

	if len(mem.WrPorts) == 0 {
		effectiveByte = 1
	}

	nc := c.Clone()
	nc.BaseWidthLog2 = log2Ceil(base)
	nc.Swizzle = genSwizzle(mem.Width, effectiveByte)
	nc.ReplD = ceilDiv(len(nc.Swizzle), base)

	if nc.ReplD < 1 {
		nc.ReplD = 1
	}

	nc.ScoreMux, nc.ScoreDemux = muxDemuxScore(mem, &nc)

	nc.Cost = dims.Cost*float64(nc.ReplD)*float64(nc.ReplPort) +
		nc.ScoreMux*FactorMux + nc.ScoreDemux*FactorDemux + float64(nc.ScoreEmu)*FactorEmu

	return nc
}

func portMinWidth(lib *memlib.Library, c *MemConfig) int {
	rd := &lib.RamDefs[c.RamDef]

	min := 0

	collect := func(pdi, widthIdx int) {
		pg := rd.Ports[pdi].Val
		if widthIdx < 0 || widthIdx >= len(pg.Width) {
			return
		}

		wdef := pg.Width[widthIdx].Val

		for _, ws := range [][]int{wdef.WrWidths, wdef.RdWidths} {
			if len(ws) > 0 && ws[0] > min {
				min = ws[0]
			}
		}
	}

	for _, w := range c.WrPorts {
		collect(w.PortDefIdx, w.WidthIdx)
	}

	for _, r := range c.RdPorts {
		collect(r.PortDefIdx, r.WidthIdx)
	}

	return min
}

func muxDemuxScore(mem *netlist.Memory, c *MemConfig) (mux, demux float64) {
	for _, r := range c.RdPorts {
		if c.ReplD > 1 {
			mux += float64(c.ReplD - 1)
		}

		_ = r
	}

	for range c.WrPorts {
		if c.ReplD > 1 {
			demux += float64(c.ReplD - 1)
		}
	}

	return mux, demux
}

func log2Ceil(n int) int {
	l := 0

	for (1 << l) < n {
		l++
	}

	return l
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}

	return (a + b - 1) / b
}

// PostGeometryDedup is pipeline stage 11 of spec.md §2/§4.10 ("Post"):
// group by library resource bucket, retain the lowest-cost candidate.
func PostGeometryDedup(lib *memlib.Library, cands []MemConfig) []MemConfig {
	best := map[string]MemConfig{}

	for _, c := range cands {
		rd := &lib.RamDefs[c.RamDef]
		dims := rd.Dims[c.DimsIdx].Val

		key := dims.ResourceName
		if key == "" {
			key = rd.Kind.String()
		}

		if cur, ok := best[key]; !ok || c.Cost < cur.Cost {
			best[key] = c
		}
	}

	out := make([]MemConfig, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}

	return out
}
