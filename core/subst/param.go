package subst

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ExpandStatus replaces every plain $? in the line with the given exit
// status. The walk honors quoting, so a single-quoted '$?' stays
// literal. Occurrences inside $(...) are replaced too: the embedded
// command sees the shell's last status, not its own.
func ExpandStatus(line string, status int) (string, error) {
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	file, err := parser.Parse(strings.NewReader(line), "")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	type hit struct{ start, end int }
	var hits []hit
	syntax.Walk(file, func(node syntax.Node) bool {
		pe, ok := node.(*syntax.ParamExp)
		if !ok {
			return true
		}
		if pe.Param == nil || pe.Param.Value != "?" {
			return true
		}
		hits = append(hits, hit{int(pe.Pos().Offset()), int(pe.End().Offset())})
		return true
	})
	if len(hits) == 0 {
		return line, nil
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].start < hits[j].start })

	text := strconv.Itoa(status)
	var out strings.Builder
	prev := 0
	for _, h := range hits {
		if h.start < prev || h.end > len(line) {
			continue
		}
		out.WriteString(line[prev:h.start])
		out.WriteString(text)
		prev = h.end
	}
	out.WriteString(line[prev:])
	return out.String(), nil
}
