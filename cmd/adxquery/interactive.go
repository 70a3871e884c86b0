// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/adxquery/adxquery/internal/output"
	"github.com/adxquery/adxquery/snapshot"
)

// errAborted marks a promptui Ctrl+C/Ctrl+D interrupt, so the REPL can
// tell "user quit" apart from a real input error.
var errAborted = errors.New("aborted")

func wrapPromptErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) {
		return errAborted
	}
	return err
}

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Open a REPL that repeatedly prompts for a filter and runs it",
	Args:  cobra.NoArgs,
	RunE:  runInteractiveCmd,
}

// replState is the session's persistent query configuration: the most
// recently typed filter plus every option the one-shot query command
// exposes as a flag. Each turn mutates it via a ":" command or replaces
// the filter by typing a new one; :reset restores the defaults below.
type replState struct {
	filter     string
	attributes []string
	limit      int
	format     string
	outputPath string
	ignoreCase bool
	benchmark  bool
}

func defaultReplState() replState {
	return replState{format: "table"}
}

func runInteractiveCmd(cmd *cobra.Command, args []string) error {
	dec, err := openSnapshot(appConfig.Snapshot)
	if err != nil {
		return err
	}
	defer dec.Close()

	header := dec.Header()
	fmt.Fprintf(cmd.OutOrStdout(), "adxquery interactive — %d objects, captured from %s\n", header.ObjectCount, header.Server)
	fmt.Fprintln(cmd.OutOrStdout(), "Type a filter to run it, :help for commands, :quit to exit.")

	state := defaultReplState()

	for {
		line, err := promptLine()
		if err != nil {
			if errors.Is(err, errAborted) {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ":") {
			done, err := handleReplCommand(cmd, dec, &state, line[1:])
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
				continue
			}
			if done {
				return nil
			}
			continue
		}

		state.filter = line
		runReplQuery(cmd, dec, &state)
	}
}

// handleReplCommand dispatches one ":"-prefixed command against state.
// It returns done=true once the REPL should exit.
func handleReplCommand(cmd *cobra.Command, dec *snapshot.Decoder, state *replState, raw string) (done bool, err error) {
	name, rest, _ := strings.Cut(strings.TrimSpace(raw), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "help", "h", "?":
		printReplHelp(cmd)

	case "config":
		printReplConfig(cmd, *state)

	case "attrs", "attributes":
		state.attributes = splitAttributes(rest)

	case "limit":
		if rest == "" {
			state.limit = 0
			return false, nil
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			return false, fmt.Errorf("limit must be an integer: %w", err)
		}
		state.limit = n

	case "format":
		switch rest {
		case "table", "json", "csv", "excel":
			state.format = rest
		case "":
			return false, fmt.Errorf("usage: :format table|json|csv|excel")
		default:
			return false, fmt.Errorf("unknown format %q: want table, json, csv, or excel", rest)
		}

	case "output":
		if rest == "-" {
			rest = ""
		}
		state.outputPath = rest

	case "benchmark":
		state.benchmark, err = parseReplToggle(rest, state.benchmark)
		return false, err

	case "ignore-case":
		state.ignoreCase, err = parseReplToggle(rest, state.ignoreCase)
		return false, err

	case "dump-header":
		printHeader(cmd, dec)

	case "reset":
		*state = defaultReplState()
		fmt.Fprintln(cmd.OutOrStdout(), "configuration reset to defaults")

	case "clear":
		fmt.Fprint(cmd.OutOrStdout(), "\033[H\033[2J")

	case "run":
		if state.filter == "" {
			return false, fmt.Errorf("no filter set yet; type one or use :attrs/:format/etc. first")
		}
		runReplQuery(cmd, dec, state)

	case "quit", "exit", "q":
		return true, nil

	default:
		return false, fmt.Errorf("unknown command %q; try :help", name)
	}

	return false, nil
}

// parseReplToggle interprets rest as an explicit on/off/true/false value,
// or flips current when rest is empty.
func parseReplToggle(rest string, current bool) (bool, error) {
	switch strings.ToLower(rest) {
	case "":
		return !current, nil
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	default:
		return current, fmt.Errorf("expected on/off, got %q", rest)
	}
}

func runReplQuery(cmd *cobra.Command, dec *snapshot.Decoder, state *replState) {
	engine, err := buildEngine(dec, state.filter, state.attributes, state.limit, state.ignoreCase)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "filter error:", err)
		return
	}

	if err := renderResults(cmd, engine, state.format, state.outputPath); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "output error:", err)
		return
	}

	if len(engine.UnknownAttributes()) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: unknown attributes requested: %v\n", engine.UnknownAttributes())
	}

	if state.benchmark {
		printStats(cmd, engine)
	}
	fmt.Fprintln(cmd.OutOrStdout())
}

func printReplHelp(cmd *cobra.Command) {
	fmt.Fprintln(cmd.OutOrStdout(), `Type a filter expression, e.g. (objectClass=user), to run it.

Commands:
  :help                     show this message
  :config                   show the current filter, attributes, and options
  :attrs [a b c]             set the projected attributes (blank = all)
  :limit [n]                 set the match limit (blank = unlimited)
  :format table|json|csv|excel   set the output format
  :output [path|-]           write results to path, or "-"/blank for stdout
  :benchmark [on|off]        toggle or set statistics printing
  :ignore-case [on|off]      toggle or set the ignore-case flag (no effect: comparisons always fold case)
  :dump-header               print the snapshot header
  :run                       re-run the current filter with current options
  :reset                     restore defaults
  :clear                     clear the screen
  :quit, :exit               leave the shell`)
}

func printReplConfig(cmd *cobra.Command, state replState) {
	attrs := "(all)"
	if len(state.attributes) > 0 {
		attrs = strings.Join(state.attributes, ", ")
	}
	outputPath := "(stdout)"
	if state.outputPath != "" {
		outputPath = state.outputPath
	}
	limit := "(unlimited)"
	if state.limit > 0 {
		limit = fmt.Sprint(state.limit)
	}

	output.WriteKeyValueTable(cmd.OutOrStdout(), [][2]string{
		{"filter", state.filter},
		{"attributes", attrs},
		{"limit", limit},
		{"format", state.format},
		{"output", outputPath},
		{"benchmark", fmt.Sprint(state.benchmark)},
		{"ignore_case", fmt.Sprint(state.ignoreCase)},
	})
}

func promptLine() (string, error) {
	prompt := promptui.Prompt{Label: "adxquery"}
	result, err := prompt.Run()
	return result, wrapPromptErr(err)
}
