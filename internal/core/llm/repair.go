package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// RepairStrategy names one step of the JSON repair pass.
type RepairStrategy string

// Candidate extraction strategies, tried in this order.
const (
	StrategyTrimmed    RepairStrategy = "trimmed"
	StrategyJSONFence  RepairStrategy = "json_fence"
	StrategyPlainFence RepairStrategy = "plain_fence"
	StrategyBraceSpan  RepairStrategy = "brace_span"
	StrategyOpenBrace  RepairStrategy = "open_brace_to_end"
)

// Fix strategies, applied cumulatively to each candidate in this order.
const (
	StrategyStripComments  RepairStrategy = "strip_comments"
	StrategyTrailingCommas RepairStrategy = "strip_trailing_commas"
	StrategyCloseStructure RepairStrategy = "close_structure"
	StrategyCutBack        RepairStrategy = "cut_back"
)

// ErrUnrepairable is returned when no strategy produced valid JSON.
var ErrUnrepairable = errors.New("response could not be repaired into valid JSON")

// maxCutBacks bounds the cut-back search on very long truncated responses.
const maxCutBacks = 64

// RepairResult is the repaired document and the strategies that changed it.
// Applied is empty when the input was already valid.
type RepairResult struct {
	Text    string
	Applied []RepairStrategy
}

// Repaired reports whether any strategy changed the input.
func (r RepairResult) Repaired() bool {
	return len(r.Applied) > 0
}

type candidate struct {
	strategy RepairStrategy
	text     string
}

// Repair turns model output into valid JSON. It has no side effects and
// returns valid input unchanged.
func Repair(raw string) (RepairResult, error) {
	if json.Valid([]byte(raw)) {
		return RepairResult{Text: raw}, nil
	}

	seen := map[string]bool{}
	for _, c := range candidates(raw) {
		if c.text == "" || seen[c.text] {
			continue
		}
		seen[c.text] = true
		if res, ok := fixCandidate(c, raw); ok {
			return res, nil
		}
	}
	return RepairResult{}, ErrUnrepairable
}

func candidates(raw string) []candidate {
	trimmed := strings.TrimSpace(raw)
	out := []candidate{{StrategyTrimmed, trimmed}}

	if body, ok := fenced(trimmed, "```json"); ok {
		out = append(out, candidate{StrategyJSONFence, body})
	}
	if body, ok := fenced(trimmed, "```"); ok {
		out = append(out, candidate{StrategyPlainFence, body})
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			out = append(out, candidate{StrategyBraceSpan, trimmed[start : end+1]})
		}
		out = append(out, candidate{StrategyOpenBrace, strings.TrimSpace(trimmed[start:])})
	}
	return out
}

// fenced returns the body of the first block opened by marker. An unclosed
// fence yields everything after the marker, which covers truncated replies.
func fenced(s, marker string) (string, bool) {
	i := strings.Index(s, marker)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(marker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && strings.TrimSpace(rest[:nl]) == "" {
		rest = rest[nl+1:]
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), true
}

func fixCandidate(c candidate, raw string) (RepairResult, bool) {
	var applied []RepairStrategy
	if c.text != raw {
		applied = append(applied, c.strategy)
	}
	text := c.text
	if json.Valid([]byte(text)) {
		return RepairResult{Text: text, Applied: applied}, true
	}

	steps := []struct {
		strategy RepairStrategy
		fn       func(string) string
	}{
		{StrategyStripComments, stripComments},
		{StrategyTrailingCommas, stripTrailingCommas},
	}
	for _, step := range steps {
		next := step.fn(text)
		if next == text {
			continue
		}
		text = next
		applied = append(applied, step.strategy)
		if json.Valid([]byte(text)) {
			return RepairResult{Text: text, Applied: applied}, true
		}
	}

	if closed, changed := closeStructure(text); changed && json.Valid([]byte(closed)) {
		return RepairResult{Text: closed, Applied: append(applied, StrategyCloseStructure)}, true
	}
	if cut, ok := cutBack(text); ok {
		return RepairResult{Text: cut, Applied: append(applied, StrategyCutBack)}, true
	}
	return RepairResult{}, false
}

// stripComments removes // and /* */ comments outside string literals.
func stripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inStr {
			b.WriteByte(ch)
			switch {
			case esc:
				esc = false
			case ch == '\\':
				esc = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		if ch == '"' {
			inStr = true
			b.WriteByte(ch)
			continue
		}
		if ch == '/' && i+1 < len(s) {
			switch s[i+1] {
			case '/':
				for i < len(s) && s[i] != '\n' {
					i++
				}
				if i < len(s) {
					b.WriteByte('\n')
				}
				continue
			case '*':
				end := strings.Index(s[i+2:], "*/")
				if end < 0 {
					return b.String()
				}
				i += 2 + end + 1
				continue
			}
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// stripTrailingCommas drops commas that directly precede a closing bracket or brace.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inStr {
			b.WriteByte(ch)
			switch {
			case esc:
				esc = false
			case ch == '\\':
				esc = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		if ch == '"' {
			inStr = true
		}
		if ch == ',' {
			j := i + 1
			for j < len(s) && isJSONSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == ']' || s[j] == '}') {
				continue
			}
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// closeStructure terminates an open string and appends the closers for every
// bracket or brace still open. It reports whether anything was added.
func closeStructure(s string) (string, bool) {
	stack, inStr, esc, ok := scan(s)
	if !ok || (len(stack) == 0 && !inStr) {
		return s, false
	}
	out := s
	if inStr {
		if esc {
			out = out[:len(out)-1]
		}
		out += `"`
	}
	out = strings.TrimRight(out, " \t\r\n")
	switch {
	case strings.HasSuffix(out, ","):
		out = strings.TrimRight(out[:len(out)-1], " \t\r\n")
	case strings.HasSuffix(out, ":"):
		out += "null"
	}
	var b strings.Builder
	b.WriteString(out)
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String(), true
}

// cutBack drops the trailing incomplete element and closes what remains. Cuts
// after complete nested values are preferred over cuts at commas.
func cutBack(s string) (string, bool) {
	var closers, commas []int
	depth := 0
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case ch == '\\':
				esc = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth >= 1 {
				closers = append(closers, i+1)
			}
		case ',':
			if depth >= 1 {
				commas = append(commas, i)
			}
		}
	}

	tries := 0
	for _, cuts := range [][]int{closers, commas} {
		for k := len(cuts) - 1; k >= 0 && tries < maxCutBacks; k-- {
			tries++
			closed, _ := closeStructure(s[:cuts[k]])
			if json.Valid([]byte(closed)) {
				return closed, true
			}
		}
	}
	return "", false
}

// scan walks s and returns the open containers, whether it ends inside a
// string (and right after a backslash), and false on a mismatched closer.
func scan(s string) (stack []byte, inStr, esc, ok bool) {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case ch == '\\':
				esc = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '{', '[':
			stack = append(stack, ch)
		case '}', ']':
			if len(stack) == 0 {
				return nil, false, false, false
			}
			open := stack[len(stack)-1]
			if (ch == '}' && open != '{') || (ch == ']' && open != '[') {
				return nil, false, false, false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return stack, inStr, esc, true
}

func isJSONSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
