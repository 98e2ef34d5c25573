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

import "github.com/hwsynth/memlibmap/pkg/netlist"

// oracleCache memoises the two SAT-backed predicates per (w,r) pair,
// local to one memory's mapping and discarded with it. There is no
// per-(w) cache: no write-enable-only query is made.
type oracleCache struct {
	oracle netlist.Oracle
	mem    *netlist.Memory

	implies  map[[2]int]bool
	excludes map[[2]int]bool
}

func newOracleCache(oracle netlist.Oracle, mem *netlist.Memory) *oracleCache {
	return &oracleCache{
		oracle:   oracle,
		mem:      mem,
		implies:  map[[2]int]bool{},
		excludes: map[[2]int]bool{},
	}
}

func (oc *oracleCache) wrImpliesRd(w, r int) bool {
	key := [2]int{w, r}
	if v, ok := oc.implies[key]; ok {
		return v
	}

	v := oc.oracle.WrImpliesRd(oc.mem, w, r)
	oc.implies[key] = v

	return v
}

func (oc *oracleCache) wrExcludesRd(w, r int) bool {
	key := [2]int{w, r}
	if v, ok := oc.excludes[key]; ok {
		return v
	}

	v := oc.oracle.WrExcludesRd(oc.mem, w, r)
	oc.excludes[key] = v

	return v
}
