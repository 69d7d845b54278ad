package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/drgo/fsum"
)

const version = "1.0.0"

type cliFlags struct {
	algorithms  []string
	format      string
	output      string
	interactive bool
	recursive   bool
	absolute    bool
	noProgress  bool
	verbose     bool
}

func main() {
	log.SetFlags(0) // Remove timestamps from logger
	// Optional .env file carrying FSUM_* defaults; absence is fine.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		handleError(err.Error())
	}
}

func newRootCmd() *cobra.Command {
	f := &cliFlags{}
	cmd := &cobra.Command{
		Use:           "fsum [flags] PATTERN...",
		Short:         "Compute file digests in batch, with progress for large files",
		Example:       "  fsum -a SHA1,MD5 -f json ./downloads/*.iso",
		Version:       version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, f)
		},
	}

	cmd.Flags().StringArrayVarP(&f.algorithms, "algorithms", "a", nil, "Hash algorithm (repeatable, or one comma-joined string)")
	cmd.Flags().StringVarP(&f.format, "format", "f", envOr("FSUM_FORMAT", "native"), "Output format: native, compact, cjson, json, csv, xml, html")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write output to a file instead of stdout")
	cmd.Flags().BoolVarP(&f.interactive, "interactive", "i", false, "Compare a supplied hash against the results interactively")
	cmd.Flags().BoolVarP(&f.recursive, "recursive", "r", false, "Expand directories recursively")
	cmd.Flags().BoolVar(&f.absolute, "absolute", false, "Report full paths instead of leaf names")
	cmd.Flags().BoolVar(&f.noProgress, "no-progress", envBool("FSUM_NO_PROGRESS"), "Disable progress estimation for large files")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Verbose logging to stderr")
	return cmd
}

func run(cmd *cobra.Command, args []string, f *cliFlags) error {
	algorithms, err := fsum.ParseAlgorithms(f.algorithms)
	if err != nil {
		return err
	}
	kind, err := fsum.ParseFormat(f.format)
	if err != nil {
		return err
	}

	disabler := fsum.NewDisabler()
	if f.noProgress {
		disabler = fsum.NewDisabled()
	}
	opts := []fsum.Option{fsum.WithDisabler(disabler)}
	if f.recursive {
		opts = append(opts, fsum.WithRecursive())
	}
	if f.verbose {
		opts = append(opts, fsum.WithVerboseOutput(cmd.ErrOrStderr()))
	}

	// The live display only makes sense on a terminal; without it every file
	// takes the fast path.
	var events chan fsum.Event
	var wg sync.WaitGroup
	if !f.noProgress && term.IsTerminal(int(os.Stdout.Fd())) {
		events = make(chan fsum.Event, 64)
		opts = append(opts, fsum.WithProgressChannel(events))
		wg.Add(1)
		go func() {
			defer wg.Done()
			displayProgress(events)
		}()
	}

	stream, err := fsum.New(opts...).Run(context.Background(), args, algorithms)
	if err != nil {
		if events != nil {
			close(events)
			wg.Wait()
		}
		return err
	}

	var results []fsum.Result
	for res := range stream {
		results = append(results, res)
	}
	if events != nil {
		close(events)
		wg.Wait()
		fmt.Println()
	}

	text, err := fsum.Format(results, kind, f.absolute)
	if err != nil {
		return err
	}
	if f.output != "" {
		if err := fsum.WriteOutput(text, f.output); err != nil {
			return err
		}
		log.Printf("Results written to %s", f.output)
	} else {
		fmt.Fprint(cmd.OutOrStdout(), text)
	}

	if f.interactive {
		return fsum.NewComparator(results).Run()
	}
	return nil
}

// displayProgress redraws a single status line from the event stream.
func displayProgress(events <-chan fsum.Event) {
	yellow := color.New(color.FgYellow)
	var batchPart string
	for ev := range events {
		switch ev.State {
		case fsum.StateWarning:
			fmt.Print("\r")
			yellow.Println(ev.Message)
		case fsum.StateBatch:
			batchPart = fmt.Sprintf(" (%d/%d)", ev.Completed, ev.Total)
		case fsum.StateHashing:
			line := fmt.Sprintf("[%c] %5.1f%% ETA %s  %s%s",
				ev.Frame, ev.Percent, ev.ETA.Round(time.Second), truncateString(ev.Path, 40), batchPart)
			fmt.Printf("\r%-80s", line)
		case fsum.StateDone:
			line := fmt.Sprintf("[+] 100.0%%  %s%s", truncateString(ev.Path, 40), batchPart)
			fmt.Printf("\r%-80s", line)
		}
	}
}

// handleError prints a concise error and exits.
func handleError(msg string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	fmt.Fprintln(os.Stderr, "Run with -h for usage information.")
	os.Exit(1)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen+3:]
}
