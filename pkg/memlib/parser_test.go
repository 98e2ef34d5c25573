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
package memlib

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func parseString(t *testing.T, src string) *Library {
	t.Helper()

	lib := NewLibrary(PassOptions{}, nil)
	if err := ParseReader("<test>", strings.NewReader(src), lib, logrus.New()); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	return lib
}

func Test_Parser_DistributedRom(t *testing.T) {
	lib := parseString(t, `
		ram distributed $rom8x4 {
			abits 3 dbits 4 cost 1;
			init any;
			port ar "R" {
			}
		}
	`)

	if len(lib.RamDefs) != 1 {
		t.Fatalf("expected 1 ram def, got %d", len(lib.RamDefs))
	}

	rd := lib.RamDefs[0]
	if rd.Kind != Distributed {
		t.Errorf("expected Distributed, got %v", rd.Kind)
	}

	if rd.ID != "$rom8x4" {
		t.Errorf("expected id $rom8x4, got %q", rd.ID)
	}

	if len(rd.Dims) != 1 || rd.Dims[0].Val.Abits != 3 || len(rd.Dims[0].Val.Dbits) != 1 || rd.Dims[0].Val.Dbits[0] != 4 {
		t.Errorf("unexpected dims: %+v", rd.Dims)
	}

	if len(rd.Ports) != 1 || rd.Ports[0].Val.Kind != Ar {
		t.Errorf("unexpected ports: %+v", rd.Ports)
	}
}

func Test_Parser_Ifdef(t *testing.T) {
	lib := NewLibrary(PassOptions{}, []string{"WIDE"})

	err := ParseReader("<test>", strings.NewReader(`
		ram block $b1 {
			abits 10 dbits 8 cost 1;
			ifdef WIDE
				abits 10 dbits 16 cost 2;
			else
				abits 10 dbits 8 cost 2;
			endifdontexist
		}
	`), lib, logrus.New())

	// "endifdontexist" is not part of the grammar (there is no explicit
	// terminator token) so this exercises the unknown-item error path.
	if err == nil {
		t.Fatalf("expected parse error for stray token")
	}
}

func Test_Parser_WrTransAndPrio(t *testing.T) {
	lib := parseString(t, `
		ram block $bram {
			abits 10 dbits 32 cost 4;
			init none;
			port srsw "R0W0" {
				clock posedge;
				rden any;
				wrtrans self new;
				wrprio "R0W0";
			}
		}
	`)

	rd := lib.RamDefs[0]
	pg := rd.Ports[0].Val

	if len(pg.WrTrans) != 1 || pg.WrTrans[0].Val.TargetKind != TargetSelf || pg.WrTrans[0].Val.Kind != TransNew {
		t.Errorf("unexpected wrtrans: %+v", pg.WrTrans)
	}

	if len(pg.WrPrio) != 1 || pg.WrPrio[0].Val != "R0W0" {
		t.Errorf("unexpected wrprio: %+v", pg.WrPrio)
	}
}

func Test_Parser_MissingRdEnIsError(t *testing.T) {
	lib := NewLibrary(PassOptions{}, nil)

	err := ParseReader("<test>", strings.NewReader(`
		ram block $b {
			abits 4 dbits 8 cost 1;
			port sr "R" {
				clock posedge;
			}
		}
	`), lib, logrus.New())

	if err == nil {
		t.Fatalf("expected error for missing rden capability")
	}
}

func Test_Parser_BadDbitsProgression(t *testing.T) {
	lib := NewLibrary(PassOptions{}, nil)

	err := ParseReader("<test>", strings.NewReader(`
		ram block $b {
			abits 4 dbits 8 6 cost 1;
			port sw "W" {}
		}
	`), lib, logrus.New())

	if err == nil {
		t.Fatalf("expected error for non-doubling dbits progression")
	}
}
