package analysis

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

// RuleSample carries the indicators one retrieved sample contributes to
// rule generation.
type RuleSample struct {
	APICalls []string
	Strings  []string
}

// orderedCounter counts string occurrences while remembering first-seen
// order, so generated rules are stable across runs.
type orderedCounter struct {
	order  []string
	counts map[string]int
}

func newOrderedCounter() *orderedCounter {
	return &orderedCounter{counts: make(map[string]int)}
}

func (c *orderedCounter) add(items []string) {
	for _, it := range items {
		if _, seen := c.counts[it]; !seen {
			c.order = append(c.order, it)
		}
		c.counts[it]++
	}
}

// atLeast returns, in first-seen order, the items counted at least
// threshold times.
func (c *orderedCounter) atLeast(threshold float64) []string {
	var out []string
	for _, it := range c.order {
		if float64(c.counts[it]) >= threshold {
			out = append(out, it)
		}
	}
	return out
}

// GenerateYaraRule builds a YARA rule from a cluster of similar samples.
// Indicators present in at least half the samples (minimum one) become
// rule strings: up to ten suspicious strings matched ascii wide nocase
// and up to ten API names matched ascii wide. The condition requires the
// PE magic plus either three string hits or five API hits.
func GenerateYaraRule(family string, samples []RuleSample) string {
	apis := newOrderedCounter()
	strs := newOrderedCounter()
	for _, s := range samples {
		apis.add(s.APICalls)
		strs.add(s.Strings)
	}

	threshold := float64(len(samples)) * 0.5
	if threshold < 1 {
		threshold = 1
	}
	commonAPIs := apis.atLeast(threshold)
	commonStrings := strs.atLeast(threshold)

	h := fnv.New32a()
	h.Write([]byte(family))
	ruleName := fmt.Sprintf("%s_%04x", strings.ReplaceAll(family, " ", "_"), h.Sum32()&0xFFFF)

	var b strings.Builder
	fmt.Fprintf(&b, "rule %s\n{\n", ruleName)
	fmt.Fprintf(&b, "    meta:\n")
	fmt.Fprintf(&b, "        description = \"Auto-generated rule for %s\"\n", family)
	fmt.Fprintf(&b, "        author = \"malsift\"\n")
	fmt.Fprintf(&b, "        date = \"%s\"\n", time.Now().Format("2006-01-02"))
	fmt.Fprintf(&b, "        sample_count = \"%d\"\n", len(samples))
	fmt.Fprintf(&b, "    strings:\n")

	for i, s := range truncate(commonStrings, 10) {
		fmt.Fprintf(&b, "        $str%d = %q ascii wide nocase\n", i+1, s)
	}
	for i, api := range truncate(commonAPIs, 10) {
		fmt.Fprintf(&b, "        $api%d = %q ascii wide\n", i+1, api)
	}

	b.WriteString("    condition:\n")
	b.WriteString("        uint16(0) == 0x5A4D and (3 of ($str*) or 5 of ($api*))\n")
	b.WriteString("}\n")
	return b.String()
}

func truncate(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
