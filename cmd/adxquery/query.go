// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/spf13/cobra"

	"github.com/adxquery/adxquery/internal/output"
	"github.com/adxquery/adxquery/query"
	"github.com/adxquery/adxquery/snapshot"
)

var (
	filterFlag     string
	attributesFlag string
	formatFlag     string
	outputFlag     string
	limitFlag      int
	ignoreCaseFlag bool
	benchmarkFlag  bool
	dumpHeaderFlag bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run an LDAP-style filter against a snapshot",
	Args:  cobra.NoArgs,
	RunE:  runQueryCmd,
}

func init() {
	queryCmd.Flags().StringVarP(&filterFlag, "filter", "f", "", "LDAP-style filter expression, e.g. (objectClass=user) (required)")
	queryCmd.Flags().StringVarP(&attributesFlag, "attributes", "a", "", "comma- or space-separated attribute names to project (default: all)")
	queryCmd.Flags().StringVar(&formatFlag, "format", "table", "output format: table|json|csv|excel")
	queryCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "write results to this file instead of stdout (required for excel)")
	queryCmd.Flags().IntVar(&limitFlag, "limit", 0, "stop after this many matches (0 = unlimited)")
	queryCmd.Flags().BoolVar(&ignoreCaseFlag, "ignore-case", false, "accepted for compatibility; comparisons already fold case unconditionally")
	queryCmd.Flags().BoolVar(&benchmarkFlag, "benchmark", false, "print query statistics after running")
	queryCmd.Flags().BoolVar(&dumpHeaderFlag, "dump-header", false, "print the parsed snapshot header before running the query")
}

func runQueryCmd(cmd *cobra.Command, args []string) error {
	if filterFlag == "" {
		return fmt.Errorf("--filter is required")
	}

	dec, err := openSnapshot(appConfig.Snapshot)
	if err != nil {
		return err
	}
	defer dec.Close()

	if dumpHeaderFlag {
		printHeader(cmd, dec)
	}

	attrs := splitAttributes(attributesFlag)
	engine, err := buildEngine(dec, filterFlag, attrs, limitFlag, ignoreCaseFlag)
	if err != nil {
		return err
	}

	if err := renderResults(cmd, engine, formatFlag, outputFlag); err != nil {
		return err
	}

	if len(engine.UnknownAttributes()) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: unknown attributes requested: %v\n", engine.UnknownAttributes())
	}

	if benchmarkFlag {
		printStats(cmd, engine)
	}

	return nil
}

// renderResults drives the selected output format. json and csv stream
// directly off engine.Search's lazy sequence; table and excel materialise
// every row first, since the table writer needs the full row set to size
// its columns and WriteExcel takes the complete row slice. It is shared by the one-shot query command and the
// interactive REPL, which both need to render the same four formats
// against a caller-chosen destination.
func renderResults(cmd *cobra.Command, engine *query.Engine, format, outputPath string) error {
	switch format {
	case "json":
		w, closeFn, err := openResultWriter(cmd, outputPath)
		if err != nil {
			return err
		}
		defer closeFn()
		return output.WriteJSON(w, engineRows(engine))

	case "csv":
		w, closeFn, err := openResultWriter(cmd, outputPath)
		if err != nil {
			return err
		}
		defer closeFn()
		return output.WriteCSV(w, engineRows(engine), engine.SelectedAttributes())

	case "excel":
		if outputPath == "" {
			return fmt.Errorf("--output is required for --format excel")
		}
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		return output.WriteExcel(f, materialiseAll(engine), engine.SelectedAttributes())

	case "table", "":
		w, closeFn, err := openResultWriter(cmd, outputPath)
		if err != nil {
			return err
		}
		defer closeFn()
		return output.WriteTable(w, materialiseAll(engine), engine.SelectedAttributes())

	default:
		return fmt.Errorf("unknown format %q: want table, json, csv, or excel", format)
	}
}

func openResultWriter(cmd *cobra.Command, outputPath string) (w io.Writer, closeFn func(), err error) {
	if outputPath == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// engineRows adapts query.Engine.Search's lazy *snapshot.Entry sequence
// into a lazy sequence of materialised output.Row values, so json/csv
// output never holds the full result set in memory.
func engineRows(engine *query.Engine) iter.Seq[output.Row] {
	return func(yield func(output.Row) bool) {
		for entry := range engine.Search(context.Background()) {
			if !yield(toRow(engine.Materialise(entry))) {
				return
			}
		}
	}
}

func toRow(attrs []snapshot.Attribute) output.Row {
	row := make(output.Row, len(attrs))
	for i, a := range attrs {
		row[i] = output.Field{Name: a.Name, Value: a.Value}
	}
	return row
}

func materialiseAll(engine *query.Engine) []output.Row {
	var rows []output.Row
	for row := range engineRows(engine) {
		rows = append(rows, row)
	}
	return rows
}
