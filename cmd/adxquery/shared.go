// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adxquery/adxquery/filter"
	"github.com/adxquery/adxquery/internal/output"
	"github.com/adxquery/adxquery/query"
	"github.com/adxquery/adxquery/snapshot"
)

// openSnapshot opens the configured .dat file, or returns an error
// describing which flag or environment variable to set if no path was
// ever supplied.
func openSnapshot(path string) (*snapshot.Decoder, error) {
	if path == "" {
		return nil, fmt.Errorf("no snapshot path given: pass --snapshot, set ADXQUERY_SNAPSHOT, or add \"snapshot\" to a --config file")
	}
	return snapshot.Open(path, snapshot.WithLogger(appLogging))
}

// splitAttributes accepts both comma- and space-separated attribute lists
// in a single --attributes flag value.
func splitAttributes(raw string) []string {
	raw = strings.ReplaceAll(raw, ",", " ")
	fields := strings.Fields(raw)
	return fields
}

// buildEngine parses filterText and constructs a query.Engine bound to
// dec, applying the shared CLI flags every query path (single-shot and
// interactive) accepts.
func buildEngine(dec *snapshot.Decoder, filterText string, attributes []string, limit int, ignoreCase bool) (*query.Engine, error) {
	node, err := filter.Parse(filterText)
	if err != nil {
		return nil, err
	}

	opts := []query.Option{
		query.WithIgnoreCase(ignoreCase),
		query.WithAttributes(attributes),
		query.WithLogger(appLogging),
	}
	if limit > 0 {
		opts = append(opts, query.WithLimit(limit))
	}

	return query.New(dec, node, opts...), nil
}

// headerPairs renders a snapshot.Header as key/value string pairs for the
// table output helper.
func headerPairs(h snapshot.Header) [][2]string {
	return [][2]string{
		{"signature", h.Signature},
		{"captured_at", h.CapturedAt.Format("2006-01-02T15:04:05Z07:00")},
		{"description", h.Description},
		{"server", h.Server},
		{"object_count", fmt.Sprint(h.ObjectCount)},
		{"attribute_count", fmt.Sprint(h.AttributeCount)},
		{"file_size", fmt.Sprint(h.FileSize)},
	}
}

// printHeader writes the parsed snapshot header as a key/value table. Shared
// by the one-shot --dump-header flag and the REPL's :dump-header command.
func printHeader(cmd *cobra.Command, dec *snapshot.Decoder) {
	output.WriteKeyValueTable(cmd.OutOrStdout(), headerPairs(dec.Header()))
}

// printStats writes an engine's query statistics as a key/value table.
// Shared by the one-shot --benchmark flag and the REPL's :benchmark toggle.
func printStats(cmd *cobra.Command, engine *query.Engine) {
	stats := engine.Stats()
	output.WriteKeyValueTable(cmd.OutOrStdout(), [][2]string{
		{"entries_evaluated", fmt.Sprint(stats.EntriesEvaluated)},
		{"matches", fmt.Sprint(stats.Matches)},
		{"duration", stats.Duration.String()},
	})
}
