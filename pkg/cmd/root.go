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

// Package cmd implements the CLI surface of spec.md §6.3.
package cmd

import (
	"os"

	"github.com/segmentio/encoding/json"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hwsynth/memlibmap/pkg/libmap"
	"github.com/hwsynth/memlibmap/pkg/memlib"
)

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "memory_libmap [selection]",
	Short: "Map abstract RTL memories onto a technology RAM library.",
	Long:  "memory_libmap explores, scores and emits library-cell mappings for abstract memory arrays, per the library description files given with -lib.",
	RunE:  run,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringArray("lib", nil, "library description file (repeatable)")
	rootCmd.Flags().StringArray("D", nil, "define a preprocessor condition (repeatable)")
	rootCmd.Flags().Bool("no-auto-distributed", false, "do not auto-select distributed RAMs")
	rootCmd.Flags().Bool("no-auto-block", false, "do not auto-select block RAMs")
	rootCmd.Flags().Bool("no-auto-huge", false, "do not auto-select huge RAMs")
	rootCmd.Flags().Bool("debug-geom", false, "print the parsed library summary table and enable debug logging")
	rootCmd.Flags().String("emit-json", "", "write the parsed library's RAM definitions to this file as JSON")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")
}

func run(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	libFiles, _ := cmd.Flags().GetStringArray("lib")
	defines, _ := cmd.Flags().GetStringArray("D")
	noAutoDist, _ := cmd.Flags().GetBool("no-auto-distributed")
	noAutoBlock, _ := cmd.Flags().GetBool("no-auto-block")
	noAutoHuge, _ := cmd.Flags().GetBool("no-auto-huge")
	debugGeom, _ := cmd.Flags().GetBool("debug-geom")
	emitJSON, _ := cmd.Flags().GetString("emit-json")

	if debugGeom {
		log.SetLevel(logrus.DebugLevel)
	}

	opts := memlib.PassOptions{
		NoAutoDistributed: noAutoDist,
		NoAutoBlock:       noAutoBlock,
		NoAutoHuge:        noAutoHuge,
	}

	lib := memlib.NewLibrary(opts, defines)

	for _, f := range libFiles {
		if err := memlib.ParseFile(f, lib, log); err != nil {
			return err
		}
	}

	memlib.Prepare(lib, log)

	log.Infof("loaded %d ram definitions from %d library file(s); selection=%v", len(lib.RamDefs), len(libFiles), args)

	if debugGeom {
		libmap.LibraryTable(lib).Print()
	}

	if emitJSON != "" {
		b, err := json.MarshalIndent(lib.RamDefs, "", "  ")
		if err != nil {
			return err
		}

		if err := os.WriteFile(emitJSON, b, 0o644); err != nil {
			return err
		}
	}

	return nil
}
