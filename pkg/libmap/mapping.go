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
	"github.com/hwsynth/memlibmap/pkg/libmap/emulate"
	"github.com/hwsynth/memlibmap/pkg/memlib"
	"github.com/hwsynth/memlibmap/pkg/netlist"
	"github.com/sirupsen/logrus"
)

// MapMemory runs the full pipeline of spec.md §2 against one abstract
// memory, returning the selected mapping (or a soft-logic fallback
// decision) and emitting into mod when a hard mapping wins.
//
// muxes seeds the x-propagating mux canonicalizer (spec.md §4.13/§9) used
// by the read-port binder's addr_compatible check; oracle backs the
// write-implies/write-excludes predicates of spec.md §4.5; hooks supplies
// the low-level emulation primitives of spec.md §1/§4.11.
func MapMemory(
	lib *memlib.Library,
	mem *netlist.Memory,
	mod *netlist.Module,
	muxes []netlist.Mux,
	oracle netlist.Oracle,
	hooks emulate.Hooks,
	log logrus.FieldLogger,
) (Result, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	if oracle == nil {
		oracle = netlist.NaiveOracle{}
	}

	cands := make([]MemConfig, len(lib.RamDefs))
	for i := range lib.RamDefs {
		cands[i] = NewMemConfig(i)
	}

	cands, err := FilterStyle(lib, mem, cands)
	if err != nil {
		return Result{}, err
	}

	log.Debugf("memory %q: %d candidates after style filter", mem.Name, len(cands))

	cands = FilterInit(lib, mem, cands)
	log.Debugf("memory %q: %d candidates after init filter", mem.Name, len(cands))

	cands, err = BindWritePorts(lib, mem, cands)
	if err != nil {
		return Result{}, err
	}

	log.Debugf("memory %q: %d candidates after write-port binding", mem.Name, len(cands))

	cc := netlist.NewXMuxCanonicalizer(muxes)
	oc := newOracleCache(oracle, mem)

	cands, err = BindReadPorts(lib, mem, cc, oc, cands)
	if err != nil {
		return Result{}, err
	}

	log.Debugf("memory %q: %d candidates after read-port binding", mem.Name, len(cands))

	cands = HandleTransparency(lib, mem, cands)
	cands = HandlePriority(lib, mem, cands)
	cands = HandleRdInit(lib, mem, cands)
	cands = HandleRdArst(lib, mem, cands)
	cands = HandleRdSrst(lib, mem, cands)

	log.Debugf("memory %q: %d candidates after reset/transparency/priority handling", mem.Name, len(cands))

	cands = ScoreEmulation(lib, mem, cands)

	cands = SplitGeometry(lib, cands)
	log.Debugf("memory %q: %d candidates after geometry split", mem.Name, len(cands))

	cands = PreGeometryDedup(cands)
	cands = OptimizeGeometry(lib, mem, cands)
	cands = PostGeometryDedup(lib, cands)

	log.Debugf("memory %q: %d candidates after geometry dedup", mem.Name, len(cands))

	return Select(lib, mem, mod, hooks, cands)
}
