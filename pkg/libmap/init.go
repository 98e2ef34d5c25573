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

// FilterInit is pipeline stage 2 of spec.md §2/§4.3: require a library
// entry whose init capability admits the memory's initial contents.
func FilterInit(lib *memlib.Library, mem *netlist.Memory, cands []MemConfig) []MemConfig {
	hasNonX, hasOne := mem.HasNonXInit()
	if !hasNonX {
		return cands
	}

	var out []MemConfig

	for _, c := range cands {
		rd := &lib.RamDefs[c.RamDef]

		for _, ic := range rd.Init {
			if ic.Val == memlib.InitNone {
				continue
			}

			if hasOne && ic.Val != memlib.InitAny {
				continue
			}

			nc := c.Clone()
			if !nc.CommitCapability(ic.Opts, ic.PortOpts) {
				continue
			}

			out = append(out, nc)
		}
	}

	return out
}
