// Package analysis builds the per-column frequency summaries a model reads to
// decide which values are placeholders.
package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/llmclean-cli/internal/cleaner"
	"github.com/KaramelBytes/llmclean-cli/internal/dataset"
)

// MaxNumericExamples caps how many numeric values are kept per column.
const MaxNumericExamples = 5

// ColumnSummary is the frequency table for one column, split by whether the
// value looks numeric. Numeric values are a sample; non-numeric values are complete.
type ColumnSummary struct {
	NumericExamples  map[string]int `json:"numeric_examples"`
	NonNumericValues map[string]int `json:"non_numeric_values"`
}

// Summaries maps column name to its summary. Columns with only numeric-looking
// values are absent.
type Summaries map[string]ColumnSummary

// CategoryCount holds a value and its frequency.
type CategoryCount struct {
	Value string
	Count int
}

// Summarize counts the distinct textual values of each requested column.
// Every name must exist in ds; otherwise a *dataset.ColumnNotFoundError
// listing all unknown names is returned.
func Summarize(ds *dataset.Dataset, columns []string) (Summaries, error) {
	if err := ds.RequireColumns(columns); err != nil {
		return nil, err
	}
	out := Summaries{}
	for _, name := range columns {
		if _, done := out[name]; done {
			continue
		}
		counts := map[string]int{}
		for _, v := range ds.Column(name).Strings() {
			counts[v]++
		}
		var numeric []CategoryCount
		nonNumeric := map[string]int{}
		for v, n := range counts {
			if dataset.LooksNumeric(v) {
				numeric = append(numeric, CategoryCount{Value: v, Count: n})
				continue
			}
			nonNumeric[v] = n
		}
		if len(nonNumeric) == 0 {
			continue
		}
		sortCounts(numeric)
		if len(numeric) > MaxNumericExamples {
			numeric = numeric[:MaxNumericExamples]
		}
		examples := make(map[string]int, len(numeric))
		for _, c := range numeric {
			examples[c.Value] = c.Count
		}
		out[name] = ColumnSummary{NumericExamples: examples, NonNumericValues: nonNumeric}
	}
	return out, nil
}

// sortCounts orders by count descending, then value ascending.
func sortCounts(cs []CategoryCount) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Count == cs[j].Count {
			return cs[i].Value < cs[j].Value
		}
		return cs[i].Count > cs[j].Count
	})
}

// Columns returns the summarized column names, sorted.
func (s Summaries) Columns() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Contains reports whether v occurs in any summary, in either bucket. Values
// are compared the way the cleaner matches cells, so "-99.0" finds "-99".
func (s Summaries) Contains(v string) bool {
	key := cleaner.CanonicalKey(v)
	for _, cs := range s {
		for k := range cs.NonNumericValues {
			if cleaner.CanonicalKey(k) == key {
				return true
			}
		}
		for k := range cs.NumericExamples {
			if cleaner.CanonicalKey(k) == key {
				return true
			}
		}
	}
	return false
}

// JSON renders the summaries with sorted keys and two-space indentation.
func (s Summaries) JSON() (string, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summaries: %w", err)
	}
	return string(b), nil
}

// Markdown renders a compact human-readable view, most frequent values first.
func (s Summaries) Markdown() string {
	var b strings.Builder
	b.WriteString("[COLUMN SUMMARY]\n")
	if len(s) == 0 {
		b.WriteString("No columns with non-numeric values.\n")
		return b.String()
	}
	for _, name := range s.Columns() {
		cs := s[name]
		b.WriteString(fmt.Sprintf("- %s\n", name))
		b.WriteString("  non-numeric: " + formatCounts(cs.NonNumericValues) + "\n")
		if len(cs.NumericExamples) > 0 {
			b.WriteString("  numeric examples: " + formatCounts(cs.NumericExamples) + "\n")
		}
	}
	return b.String()
}

func formatCounts(m map[string]int) string {
	cs := make([]CategoryCount, 0, len(m))
	for k, v := range m {
		cs = append(cs, CategoryCount{Value: k, Count: v})
	}
	sortCounts(cs)
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = fmt.Sprintf("%q (%d)", c.Value, c.Count)
	}
	return strings.Join(parts, ", ")
}
