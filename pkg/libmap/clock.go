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

// applyClock implements spec.md §4.12: binding a clock capability either
// commits a new named-clock mapping or must agree exactly with an existing
// one. Unnamed clocks always succeed (they impose no sharing constraint
// beyond the capability's own kind).
func applyClock(c *MemConfig, def memlib.ClockDef, sig netlist.Bit, pol bool) bool {
	if def.Name == "" {
		return true
	}

	if def.Kind == memlib.Anyedge {
		existing, ok := c.ClocksAnyedge[def.Name]
		if !ok {
			c.ClocksAnyedge[def.Name] = ClockBinding{Signal: sig, Polarity: pol}
			return true
		}

		return existing.Signal == sig && existing.Polarity == pol
	}

	flip := pol != (def.Kind == memlib.Posedge)

	existing, ok := c.ClocksPnedge[def.Name]
	if !ok {
		c.ClocksPnedge[def.Name] = ClockBinding{Signal: sig, Polarity: pol, Flip: flip}
		return true
	}

	return existing.Signal == sig && existing.Flip == flip
}
