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

// Mux is a single 2:1 multiplexer in the design, as needed by the
// x-propagating canonicalization of spec.md §4.13/§9: "a 2:1 mux with one
// input fully undefined becomes equivalent to the other input".
type Mux struct {
	A, B, Y SigSpec
}

// XMuxCanonicalizer resolves a signal through a set of known muxes,
// replacing "mux output" with "the defined input", transitively. This
// mirrors the teacher's sigmap_xmux: a SigMap seeded by scanning $mux
// cells once and recording the equivalence when one input is fully
// undefined.
type XMuxCanonicalizer struct {
	// eqv maps a wire ID driven by a mux output bit to the replacement
	// bit it canonicalizes to.
	eqv map[int]Bit
}

// NewXMuxCanonicalizer builds the canonicalizer from the design's mux
// cells, exactly as the teacher's MapWorker constructor does in one pass
// over module->cells().
func NewXMuxCanonicalizer(muxes []Mux) *XMuxCanonicalizer {
	c := &XMuxCanonicalizer{eqv: make(map[int]Bit)}

	for _, mux := range muxes {
		if mux.A.IsFullyUndef() {
			c.record(mux.Y, mux.B)
		} else if mux.B.IsFullyUndef() {
			c.record(mux.Y, mux.A)
		}
	}

	return c
}

func (c *XMuxCanonicalizer) record(y, repl SigSpec) {
	n := len(y)
	if len(repl) < n {
		n = len(repl)
	}

	for i := 0; i < n; i++ {
		if y[i].State == Wire {
			c.eqv[y[i].ID] = repl[i]
		}
	}
}

// Resolve canonicalizes a signal bit-by-bit through the recorded
// equivalences.
func (c *XMuxCanonicalizer) Resolve(s SigSpec) SigSpec {
	out := make(SigSpec, len(s))

	for i, b := range s {
		if b.State == Wire {
			if repl, ok := c.eqv[b.ID]; ok {
				b = repl
			}
		}

		out[i] = b
	}

	return out
}

// AddrCompatible implements spec.md §4.13: two read/write ports are
// address-compatible iff, after x-propagating mux canonicalization, their
// addresses agree on all bits above max(rd.wide_log2, wr.wide_log2).
func (c *XMuxCanonicalizer) AddrCompatible(wp *WritePort, rp *ReadPort) bool {
	maxWide := rp.WideLog2
	if wp.WideLog2 > maxWide {
		maxWide = wp.WideLog2
	}

	raddr := rp.Addr.ExtractEnd(maxWide)
	waddr := wp.Addr.ExtractEnd(maxWide)

	abits := len(raddr)
	if len(waddr) > abits {
		abits = len(waddr)
	}

	raddr = raddr.ExtendU0(abits)
	waddr = waddr.ExtendU0(abits)

	return c.Resolve(raddr).Equal(c.Resolve(waddr))
}
