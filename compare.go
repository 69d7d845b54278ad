package fsum

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
)

// Comparator runs the interactive comparison loop over a finished result
// slice: the operator supplies candidate digests and gets back which file and
// algorithm, if any, produced a verbatim match. Digests are compared exactly
// as emitted (lowercase hex); no case folding is applied.
type Comparator struct {
	results []Result
	out     io.Writer
	in      io.ReadCloser
}

// NewComparator builds a comparator writing to stdout.
func NewComparator(results []Result) *Comparator {
	return &Comparator{results: results, out: os.Stdout}
}

// SetIO redirects prompt input and output, for tests.
func (c *Comparator) SetIO(in io.ReadCloser, out io.Writer) {
	c.in = in
	c.out = out
}

// Matches returns the indices of results whose digest equals candidate.
func (c *Comparator) Matches(candidate string) []int {
	var matched []int
	for i, r := range c.results {
		if r.Err == nil && r.Digest == candidate {
			matched = append(matched, i)
		}
	}
	return matched
}

// Run prints the grouped results and loops prompting for candidate digests
// until the operator declines to continue.
func (c *Comparator) Run() error {
	fmt.Fprint(c.out, formatCompact(c.results, false))

	green := color.New(color.FgGreen, color.Bold)
	for {
		prompt := promptui.Prompt{Label: "Hash to compare"}
		if c.in != nil {
			prompt.Stdin = c.in
		}
		candidate, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return nil
			}
			return fmt.Errorf("comparison prompt failed: %w", err)
		}

		matched := c.Matches(candidate)
		files := 0
		for _, g := range groupResults(c.results) {
			files++
			fmt.Fprintln(c.out, g.name)
			for _, r := range g.entries {
				line := fmt.Sprintf("  %s: %s", r.Algorithm, r.value())
				if r.Err == nil && r.Digest == candidate {
					green.Fprintln(c.out, line+"  <-- MATCH")
				} else {
					fmt.Fprintln(c.out, line)
				}
			}
		}
		fmt.Fprintf(c.out, "%d of %d hashes matched across %d file(s)\n", len(matched), len(c.results), files)

		confirm := promptui.Prompt{Label: "Compare another hash", IsConfirm: true}
		if c.in != nil {
			confirm.Stdin = c.in
		}
		if _, err := confirm.Run(); err != nil {
			// Declining the confirm surfaces as ErrAbort; either way the
			// loop is done.
			return nil
		}
	}
}
