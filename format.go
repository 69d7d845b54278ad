package fsum

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"os"
	"strings"
)

// FormatKind selects an output format.
type FormatKind string

const (
	FormatNative      FormatKind = "native"
	FormatCompact     FormatKind = "compact"
	FormatCompactJSON FormatKind = "cjson"
	FormatJSON        FormatKind = "json"
	FormatCSV         FormatKind = "csv"
	FormatXML         FormatKind = "xml"
	FormatHTML        FormatKind = "html"
)

var formatKinds = []FormatKind{FormatNative, FormatCompact, FormatCompactJSON, FormatJSON, FormatCSV, FormatXML, FormatHTML}

// ParseFormat validates a user-supplied format name.
func ParseFormat(name string) (FormatKind, error) {
	trimmed := strings.TrimSpace(name)
	for _, kind := range formatKinds {
		if strings.EqualFold(trimmed, string(kind)) {
			return kind, nil
		}
	}
	names := make([]string, len(formatKinds))
	for i, k := range formatKinds {
		names[i] = string(k)
	}
	return "", configErrorf("unknown output format %q (supported: %s)", name, strings.Join(names, ", "))
}

// group is one distinct file with its results in request order.
type group struct {
	path    string
	name    string
	entries []Result
}

// groupResults preserves first-seen file order; within a group the entries
// keep the original request order.
func groupResults(results []Result) []group {
	var groups []group
	index := make(map[string]int)
	for _, r := range results {
		i, ok := index[r.Path]
		if !ok {
			i = len(groups)
			index[r.Path] = i
			groups = append(groups, group{path: r.Path, name: r.Name})
		}
		groups[i].entries = append(groups[i].entries, r)
	}
	return groups
}

func (r Result) display(absolute bool) string {
	if absolute {
		return r.Path
	}
	return r.Name
}

// value is the digest, or the error text for a failed pair.
func (r Result) value() string {
	if r.Err != nil {
		return "ERROR: " + r.Err.Error()
	}
	return r.Digest
}

// Format renders the finished result sequence. It performs no computation:
// order and grouping are preserved exactly as the batch produced them.
func Format(results []Result, kind FormatKind, absolutePaths bool) (string, error) {
	switch kind {
	case FormatNative:
		return formatNative(results, absolutePaths), nil
	case FormatCompact:
		return formatCompact(results, absolutePaths), nil
	case FormatCompactJSON:
		return formatCompactJSON(results, absolutePaths), nil
	case FormatJSON:
		return formatJSON(results, absolutePaths)
	case FormatCSV:
		return formatCSV(results, absolutePaths)
	case FormatXML:
		return formatXML(results, absolutePaths)
	case FormatHTML:
		return formatHTML(results, absolutePaths), nil
	default:
		return "", configErrorf("unknown output format %q", kind)
	}
}

// WriteOutput writes rendered text to path, the single-shot file export.
func WriteOutput(text, path string) error {
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", path, err)
	}
	return nil
}

func formatNative(results []Result, absolute bool) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-14s %-64s %s\n", "Algorithm", "Hash", "Path"))
	sb.WriteString(fmt.Sprintf("%-14s %-64s %s\n", "---------", "----", "----"))
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("%-14s %-64s %s\n", r.Algorithm, r.value(), r.display(absolute)))
	}
	return sb.String()
}

func formatCompact(results []Result, absolute bool) string {
	var sb strings.Builder
	for _, g := range groupResults(results) {
		display := g.name
		if absolute {
			display = g.path
		}
		sb.WriteString(display + "\n")
		for _, r := range g.entries {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", r.Algorithm, r.value()))
		}
	}
	return sb.String()
}

// formatCompactJSON builds a grouped object by hand: one entry per file, with
// an algorithm-to-digest map in request order. Struct marshaling cannot
// express this grouping without intermediate types, so the text is assembled
// directly; individual strings still go through the JSON encoder for correct
// escaping.
func formatCompactJSON(results []Result, absolute bool) string {
	var sb strings.Builder
	sb.WriteString(`{"files":[`)
	for i, g := range groupResults(results) {
		if i > 0 {
			sb.WriteString(",")
		}
		display := g.name
		if absolute {
			display = g.path
		}
		sb.WriteString(`{"file":` + jsonString(display) + `,"hashes":{`)
		for j, r := range g.entries {
			if j > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(jsonString(string(r.Algorithm)) + ":" + jsonString(r.value()))
		}
		sb.WriteString("}}")
	}
	sb.WriteString("]}")
	return sb.String()
}

func jsonString(s string) string {
	encoded, err := json.Marshal(s)
	if err != nil {
		// Marshaling a string cannot fail; keep the formatter total anyway.
		return `""`
	}
	return string(encoded)
}

type record struct {
	File      string `json:"file" xml:"file"`
	Algorithm string `json:"algorithm" xml:"algorithm"`
	Digest    string `json:"digest,omitempty" xml:"digest,omitempty"`
	Error     string `json:"error,omitempty" xml:"error,omitempty"`
}

func toRecords(results []Result, absolute bool) []record {
	records := make([]record, len(results))
	for i, r := range results {
		records[i] = record{
			File:      r.display(absolute),
			Algorithm: string(r.Algorithm),
			Digest:    r.Digest,
		}
		if r.Err != nil {
			records[i].Error = r.Err.Error()
		}
	}
	return records
}

func formatJSON(results []Result, absolute bool) (string, error) {
	encoded, err := json.MarshalIndent(toRecords(results, absolute), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}
	return string(encoded) + "\n", nil
}

func formatCSV(results []Result, absolute bool) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"file", "algorithm", "digest", "error"}); err != nil {
		return "", err
	}
	for _, r := range results {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		if err := w.Write([]string{r.display(absolute), string(r.Algorithm), r.Digest, errText}); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.String(), nil
}

type xmlResults struct {
	XMLName xml.Name `xml:"hashResults"`
	Results []record `xml:"result"`
}

func formatXML(results []Result, absolute bool) (string, error) {
	encoded, err := xml.MarshalIndent(xmlResults{Results: toRecords(results, absolute)}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}
	return xml.Header + string(encoded) + "\n", nil
}

func formatHTML(results []Result, absolute bool) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head><title>File Hashes</title></head>\n<body>\n")
	for _, g := range groupResults(results) {
		display := g.name
		if absolute {
			display = g.path
		}
		sb.WriteString("<h3>" + html.EscapeString(display) + "</h3>\n<table>\n")
		for _, r := range g.entries {
			sb.WriteString("<tr><td>" + html.EscapeString(string(r.Algorithm)) + "</td><td>" + html.EscapeString(r.value()) + "</td></tr>\n")
		}
		sb.WriteString("</table>\n")
	}
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}
