package sql

import (
	"regexp"
	"strings"
)

// A parameter token, optional whitespace, then the whole word OUTPUT in
// any casing. The lazy quantifier lets "@pOUTPUT" resolve to @p + OUTPUT;
// the trailing boundary keeps OUTPUTFILE and friends from matching.
var outputParamPattern = regexp.MustCompile(`(@\w+?)\s*(?i:OUTPUT)\b`)

// OutputParams scans raw statement text and returns the unique parameter
// identifiers that are marked as OUTPUT. This is a lexical heuristic,
// not a parser: matches inside line comments or open string literals are
// discarded, but block comments are not specially handled.
func OutputParams(statement string) []string {
	seen := make(map[string]struct{})
	params := make([]string, 0)

	for _, m := range outputParamPattern.FindAllStringSubmatchIndex(statement, -1) {
		before := statement[:m[0]]

		line := before
		if i := strings.LastIndexByte(before, '\n'); i >= 0 {
			line = before[i+1:]
		}
		if strings.Contains(line, "--") {
			continue
		}

		if strings.Count(before, "'")%2 != 0 {
			continue
		}

		name := statement[m[2]:m[3]]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		params = append(params, name)
	}

	return params
}
