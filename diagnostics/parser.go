package diagnostics

import (
	"regexp"
	"strconv"
	"strings"
)

// Record is one structured failure extracted from raw output.
type Record struct {
	Kind       Kind   `json:"kind"`
	Line       int    `json:"line"`
	Message    string `json:"message"`
	Symbol     string `json:"symbol,omitempty"`
	Suggestion string `json:"suggestion"`
}

// Parser decomposes raw failure text. RegexParser is the only implementation;
// the interface leaves room for a model-backed parser.
type Parser interface {
	Parse(raw string) []Record
}

var (
	failurePattern  = regexp.MustCompile(`(\w+Error): (.+)`)
	locationPattern = regexp.MustCompile(`File "(.+)", line (\d+)`)
)

// RegexParser parses python tracebacks.
type RegexParser struct{}

// Parse implements Parser.
func (RegexParser) Parse(raw string) []Record {
	return Parse(raw)
}

// Parse returns one record per "<Name>Error: <message>" line, in order of
// appearance. Each record takes its line number from the closest preceding
// `File "...", line N` marker, or 0 when there is none.
func Parse(raw string) []Record {
	matches := failurePattern.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		return nil
	}
	locations := locationPattern.FindAllStringSubmatchIndex(raw, -1)

	records := make([]Record, 0, len(matches))
	loc := 0
	line := 0
	for _, m := range matches {
		// Locations are in text order, so advance a cursor instead of rescanning.
		for loc < len(locations) && locations[loc][1] <= m[0] {
			line, _ = strconv.Atoi(raw[locations[loc][4]:locations[loc][5]])
			loc++
		}

		name := raw[m[2]:m[3]]
		message := strings.TrimRight(raw[m[4]:m[5]], "\r")
		kind := KindOf(name)
		rule := ruleFor(kind)

		symbol := ""
		if rule.symbol != nil {
			if sm := rule.symbol.FindStringSubmatch(message); len(sm) > 1 {
				symbol = sm[1]
			}
		}

		records = append(records, Record{
			Kind:       kind,
			Line:       line,
			Message:    message,
			Symbol:     symbol,
			Suggestion: rule.suggest(symbol),
		})
	}
	return records
}

// Kinds returns the distinct kinds present in records, in first-seen order.
func Kinds(records []Record) []Kind {
	seen := make(map[Kind]bool)
	var out []Kind
	for _, r := range records {
		if !seen[r.Kind] {
			seen[r.Kind] = true
			out = append(out, r.Kind)
		}
	}
	return out
}
