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
	"strings"
	"testing"

	"github.com/hwsynth/memlibmap/pkg/memlib"
	"github.com/hwsynth/memlibmap/pkg/netlist"
	"github.com/sirupsen/logrus"
)

var netCounter int

func wireSig(width int) netlist.SigSpec {
	out := make(netlist.SigSpec, width)
	for i := range out {
		out[i] = netlist.WireBit(netCounter)
		netCounter++
	}

	return out
}

func constSig(width int, state netlist.State) netlist.SigSpec {
	out := make(netlist.SigSpec, width)
	for i := range out {
		out[i] = netlist.ConstBit(state)
	}

	return out
}

// noReset is the Bit value a front end must use for a read port's Arst/Srst
// when that port has no such reset — the Go zero value (State: S0) would
// otherwise read as "resets to constant 0", since Sx is not State's zero
// value. Every ReadPort literal in this file sets both fields explicitly.
var noReset = netlist.Bit{State: netlist.Sx}

func parseLib(t *testing.T, src string) *memlib.Library {
	t.Helper()

	lib := memlib.NewLibrary(memlib.PassOptions{}, nil)
	if err := memlib.ParseReader("<test>", strings.NewReader(src), lib, logrus.New()); err != nil {
		t.Fatalf("library parse failed: %v", err)
	}

	return lib
}

// Test_MapMemory_Rom8x4 reproduces spec.md §8 scenario 1.
func Test_MapMemory_Rom8x4(t *testing.T) {
	lib := parseLib(t, `
		ram distributed $rom8x4 {
			abits 3 dbits 4 cost 1;
			init any;
			port ar "R" {
			}
		}
	`)

	mem := &netlist.Memory{
		Name:  "rom",
		Width: 4,
		Size:  8,
		Inits: []netlist.InitSegment{
			{Offset: 0, Data: constSig(4*8, netlist.S1)},
		},
		RdPorts: []netlist.ReadPort{
			{Name: "R", ClkEnable: false, En: constSig(1, netlist.S1), Addr: wireSig(3), Data: wireSig(4), Arst: noReset, Srst: noReset},
		},
	}

	mod := netlist.NewModule("top")

	res, err := MapMemory(lib, mem, mod, nil, nil, libmapTestHooks{}, logrus.New())
	if err != nil {
		t.Fatalf("mapping failed: %v", err)
	}

	if !res.Mapped {
		t.Fatalf("expected a hard mapping, got soft-logic fallback (cost %v)", res.Cost)
	}

	if res.Config.ReplD != 1 {
		t.Errorf("expected repl_d=1, got %d", res.Config.ReplD)
	}

	if res.Config.ReplPort != 1 {
		t.Errorf("expected repl_port=1, got %d", res.Config.ReplPort)
	}

	if res.Config.ScoreEmu != 1 {
		t.Errorf("expected score_emu=1 (unshared read tiebreak), got %d", res.Config.ScoreEmu)
	}
}

// Test_MapMemory_SinglePortTransparent reproduces spec.md §8 scenario 2.
func Test_MapMemory_SinglePortTransparent(t *testing.T) {
	lib := parseLib(t, `
		ram block $bram1024x32 {
			abits 10 dbits 32 cost 4;
			init none;
			port srsw "RW" {
				clock posedge;
				rden any;
				wrtrans self new;
			}
		}
	`)

	clk := netlist.WireBit(9000)
	addr := wireSig(10)

	mem := &netlist.Memory{
		Name:  "sp",
		Width: 32,
		Size:  1024,
		WrPorts: []netlist.WritePort{
			{Name: "W", ClkEnable: true, Clk: clk, ClkPolarity: true, En: constSig(1, netlist.S1), Addr: addr, Data: wireSig(32)},
		},
		RdPorts: []netlist.ReadPort{
			{
				Name: "R", ClkEnable: true, Clk: clk, ClkPolarity: true, En: constSig(1, netlist.S1), Addr: addr, Data: wireSig(32),
				TransparencyMask: []bool{true},
				CollisionXMask:   []bool{false},
				Arst:             noReset,
				Srst:             noReset,
			},
		},
	}

	mod := netlist.NewModule("top")

	res, err := MapMemory(lib, mem, mod, nil, netlist.NaiveOracle{}, libmapTestHooks{}, logrus.New())
	if err != nil {
		t.Fatalf("mapping failed: %v", err)
	}

	if !res.Mapped {
		t.Fatalf("expected a hard mapping, got soft-logic fallback")
	}

	if res.Config.ReplD != 1 {
		t.Errorf("expected repl_d=1, got %d", res.Config.ReplD)
	}

	for i, r := range res.Config.RdPorts {
		if len(r.EmuTrans) != 0 {
			t.Errorf("read port %d: expected no emu_trans, got %v", i, r.EmuTrans)
		}
	}
}

// Test_MapMemory_SyncReadOnAsyncCell reproduces spec.md §4.5's "sync source
// on Ar/Arsw: set emu_sync=true" rule (the direction scenario 3 exercises):
// a clocked read port can only bind to an async-only library read capability
// by materialising an output register.
func Test_MapMemory_SyncReadOnAsyncCell(t *testing.T) {
	lib := parseLib(t, `
		ram distributed $d512x16 {
			abits 9 dbits 16 cost 1;
			init none;
			port ar "R" {
			}
		}
	`)

	mem := &netlist.Memory{
		Name:  "dp",
		Width: 16,
		Size:  512,
		RdPorts: []netlist.ReadPort{
			{
				Name: "R", ClkEnable: true, Clk: netlist.WireBit(9200), ClkPolarity: true,
				En: constSig(1, netlist.S1), Addr: wireSig(9), Data: wireSig(16),
				Arst: noReset, Srst: noReset,
			},
		},
	}

	mod := netlist.NewModule("top")

	res, err := MapMemory(lib, mem, mod, nil, nil, libmapTestHooks{}, logrus.New())
	if err != nil {
		t.Fatalf("mapping failed: %v", err)
	}

	if !res.Mapped {
		t.Fatalf("expected a hard mapping, got soft-logic fallback (cost %v)", res.Cost)
	}

	if len(res.Config.RdPorts) != 1 || !res.Config.RdPorts[0].EmuSync {
		t.Fatalf("expected the bound read port to carry emu_sync=true, got %+v", res.Config.RdPorts)
	}

	if res.Config.ScoreEmu != 1 {
		t.Errorf("expected score_emu=1 (unshared read tiebreak only; emu_sync itself carries no §4.8 points), got %d", res.Config.ScoreEmu)
	}
}

// Test_MapMemory_ReadFirstLosesWithoutWrtrans reproduces spec.md §8 scenario
// 4: emulate_read_first_ok holds, the read port is unshared, and the
// library's write-port group declares no wrtrans capability at all. Both the
// plain and the emu_read_first-forked candidate end up needing emu_trans (no
// wrtrans capability exists to satisfy either), so the extra 3×#write-ports
// emu_read_first cost makes the non-read-first candidate strictly cheaper.
func Test_MapMemory_ReadFirstLosesWithoutWrtrans(t *testing.T) {
	lib := parseLib(t, `
		ram distributed $d4x8 {
			abits 2 dbits 8 cost 1;
			init none;
			port sw "W" {
			}
			port sr "R" {
				rden any;
			}
		}
	`)

	clk := netlist.WireBit(9300)
	addr := wireSig(2)

	mem := &netlist.Memory{
		Name:  "wr1",
		Width: 8,
		Size:  4,
		WrPorts: []netlist.WritePort{
			{Name: "W", ClkEnable: true, Clk: clk, ClkPolarity: true, En: constSig(1, netlist.S1), Addr: addr, Data: wireSig(8)},
		},
		RdPorts: []netlist.ReadPort{
			{
				Name: "R", ClkEnable: true, Clk: clk, ClkPolarity: true, En: constSig(1, netlist.S1), Addr: addr, Data: wireSig(8),
				TransparencyMask: []bool{true},
				CollisionXMask:   []bool{false},
				Arst:             noReset,
				Srst:             noReset,
			},
		},
	}

	mod := netlist.NewModule("top")

	res, err := MapMemory(lib, mem, mod, nil, netlist.NaiveOracle{}, libmapTestHooks{}, logrus.New())
	if err != nil {
		t.Fatalf("mapping failed: %v", err)
	}

	if !res.Mapped {
		t.Fatalf("expected a hard mapping, got soft-logic fallback (cost %v)", res.Cost)
	}

	if res.Config.EmuReadFirst {
		t.Errorf("expected the non-read-first candidate to win when no wrtrans capability exists")
	}

	if len(res.Config.RdPorts) != 1 || len(res.Config.RdPorts[0].EmuTrans) != 1 || res.Config.RdPorts[0].EmuTrans[0] != 0 {
		t.Errorf("expected read port 0 to carry emu_trans=[0] (write port 0), got %+v", res.Config.RdPorts)
	}
}

// Test_MapMemory_InitMismatchFiltered reproduces spec.md §8 scenario 5's
// mixed-init half: a library offering only init=zero must reject a memory
// whose init segment contains a literal 1 bit, falling back to soft logic.
func Test_MapMemory_InitMismatchFiltered(t *testing.T) {
	lib := parseLib(t, `
		ram distributed $d {
			abits 2 dbits 4 cost 1;
			init zero;
			port ar "R" {
			}
		}
	`)

	mem := &netlist.Memory{
		Name:  "mixed",
		Width: 4,
		Size:  4,
		Inits: []netlist.InitSegment{
			{Offset: 0, Data: append(constSig(4, netlist.S0), constSig(12, netlist.S1)...)},
		},
		RdPorts: []netlist.ReadPort{
			{Name: "R", ClkEnable: false, En: constSig(1, netlist.S1), Addr: wireSig(2), Data: wireSig(4), Arst: noReset, Srst: noReset},
		},
	}

	mod := netlist.NewModule("top")

	res, err := MapMemory(lib, mem, mod, nil, nil, libmapTestHooks{}, logrus.New())
	if err != nil {
		t.Fatalf("mapping failed: %v", err)
	}

	if res.Mapped {
		t.Fatalf("expected the mixed-init candidate to be filtered at the init stage")
	}
}

// Test_MapMemory_WideReplication reproduces spec.md §8 scenario 6's
// width-progression case: a library declaring only an 8-bit hard word
// against a 24-bit memory forces repl_d=3, and select.go must wire each
// replica cell to its own slice of the write port's data/enable (via
// generate_demux) and recombine the read port's replica outputs (via
// generate_mux), per spec.md §4.11.
func Test_MapMemory_WideReplication(t *testing.T) {
	lib := parseLib(t, `
		ram distributed $wideram {
			abits 2 dbits 8 cost 1;
			init none;
			port sw "W" {
			}
			port sr "R" {
				rden any;
			}
		}
	`)

	clk := netlist.WireBit(9400)
	addr := wireSig(2)
	wrData := wireSig(24)
	wrEn := constSig(24, netlist.S1)

	mem := &netlist.Memory{
		Name:  "wide",
		Width: 24,
		Size:  4,
		WrPorts: []netlist.WritePort{
			{Name: "W", ClkEnable: true, Clk: clk, ClkPolarity: true, En: wrEn, Addr: addr, Data: wrData},
		},
		RdPorts: []netlist.ReadPort{
			{
				Name: "R", ClkEnable: true, Clk: clk, ClkPolarity: true, En: constSig(1, netlist.S1), Addr: addr, Data: wireSig(24),
				TransparencyMask: []bool{true},
				CollisionXMask:   []bool{false},
				Arst:             noReset,
				Srst:             noReset,
			},
		},
	}

	mod := netlist.NewModule("top")
	hooks := &replCountingHooks{}

	res, err := MapMemory(lib, mem, mod, nil, netlist.NaiveOracle{}, hooks, logrus.New())
	if err != nil {
		t.Fatalf("mapping failed: %v", err)
	}

	if !res.Mapped {
		t.Fatalf("expected a hard mapping, got soft-logic fallback (cost %v)", res.Cost)
	}

	if res.Config.ReplD != 3 {
		t.Fatalf("expected repl_d=3 (24-bit memory against an 8-bit hard word), got %d", res.Config.ReplD)
	}

	if hooks.demuxCalls != 2 {
		t.Errorf("expected 2 generate_demux calls (WR_DATA, WR_EN), got %d", hooks.demuxCalls)
	}

	if hooks.muxCalls != 1 {
		t.Errorf("expected 1 generate_mux call (RD_DATA recombination), got %d", hooks.muxCalls)
	}

	var cells []*netlist.Cell

	for _, c := range mod.Cells {
		if c.Type == "$wideram" {
			cells = append(cells, c)
		}
	}

	if len(cells) != 3 {
		t.Fatalf("expected 3 replica cells, got %d", len(cells))
	}

	for rep, c := range cells {
		want := wrData[rep*8 : rep*8+8]
		got := c.Ports["PORT_W_WR_DATA"]

		if got.Width() != 8 {
			t.Errorf("replica %d: expected WR_DATA width 8, got %d", rep, got.Width())
		}

		if !got.Equal(want) {
			t.Errorf("replica %d: expected WR_DATA tile %v, got %v", rep, want, got)
		}

		en := c.Ports["PORT_W_WR_EN"]
		if !en.Equal(constSig(8, netlist.S1)) {
			t.Errorf("replica %d: expected WR_EN tile of 8 constant-1 bits, got %v", rep, en)
		}

		rdData := c.Ports["PORT_R_RD_DATA"]
		if rdData.Width() != 8 {
			t.Errorf("replica %d: expected RD_DATA width 8, got %d", rep, rdData.Width())
		}
	}
}

// libmapTestHooks is a no-op emulate.Hooks for tests that only check the
// selected MemConfig, not the emitted netlist.
type libmapTestHooks struct{}

func (libmapTestHooks) EmulateReadFirst(mod *netlist.Module, mem *netlist.Memory)         {}
func (libmapTestHooks) EmulateRden(mod *netlist.Module, mem *netlist.Memory, rdIdx int)    {}
func (libmapTestHooks) EmulatePriority(mod *netlist.Module, mem *netlist.Memory, w1, w2 int) {}
func (libmapTestHooks) EmulateTransparency(mod *netlist.Module, mem *netlist.Memory, rdIdx, wrIdx int) {
}
func (libmapTestHooks) EmulateReset(mod *netlist.Module, mem *netlist.Memory, rdIdx int, srstEnPrio bool) {
}

func (libmapTestHooks) ExtractRdff(mod *netlist.Module, mem *netlist.Memory, rdIdx int) netlist.SigSpec {
	return mem.RdPorts[rdIdx].Data
}

func (libmapTestHooks) GenerateMux(mod *netlist.Module, inputs []netlist.SigSpec, sel netlist.SigSpec) netlist.SigSpec {
	if len(inputs) == 0 {
		return nil
	}

	width := 0
	for _, in := range inputs {
		width += in.Width()
	}

	return mod.NewWire(width)
}

// GenerateDemux mirrors emulate.NetlistHooks: split data into n equal-width,
// zero-padded tiles, rather than returning n copies of the whole signal —
// tests asserting per-replica port widths/contents need the real split.
func (libmapTestHooks) GenerateDemux(mod *netlist.Module, sel netlist.SigSpec, data netlist.SigSpec, n int) []netlist.SigSpec {
	if n <= 0 {
		return nil
	}

	tileWidth := (data.Width() + n - 1) / n
	out := make([]netlist.SigSpec, n)

	for i := range out {
		tile := make(netlist.SigSpec, tileWidth)

		for j := 0; j < tileWidth; j++ {
			idx := i*tileWidth + j
			if idx < data.Width() {
				tile[j] = data[idx]
			} else {
				tile[j] = netlist.ConstBit(netlist.S0)
			}
		}

		out[i] = tile
	}

	return out
}

func (libmapTestHooks) GetInitData(mem *netlist.Memory, width int) netlist.SigSpec {
	return make(netlist.SigSpec, mem.Size*width)
}

// replCountingHooks wraps libmapTestHooks to count how many times
// generate_demux/generate_mux fire, so Test_MapMemory_WideReplication can
// assert select.go actually calls them instead of silently skipping the
// repl_d>1 wiring.
type replCountingHooks struct {
	libmapTestHooks
	demuxCalls int
	muxCalls   int
}

func (h *replCountingHooks) GenerateDemux(mod *netlist.Module, sel netlist.SigSpec, data netlist.SigSpec, n int) []netlist.SigSpec {
	h.demuxCalls++
	return h.libmapTestHooks.GenerateDemux(mod, sel, data, n)
}

func (h *replCountingHooks) GenerateMux(mod *netlist.Module, inputs []netlist.SigSpec, sel netlist.SigSpec) netlist.SigSpec {
	h.muxCalls++
	return h.libmapTestHooks.GenerateMux(mod, inputs, sel)
}
