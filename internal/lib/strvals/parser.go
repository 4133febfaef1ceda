// Package strvals parses the `key=value,key2=value2` lines used by the
// --log-output and --traces-output flags.
package strvals

import (
	"fmt"
	"strings"
)

// Token is a single key/value pair from a config line. Inside is the opening
// bracket if the value was written as a bracketed list, e.g. `a=[1,2]`.
type Token struct {
	Key    string
	Value  string
	Inside rune
}

// Parse splits line into tokens. Commas inside brackets do not separate
// tokens, and every key needs a non-empty value.
func Parse(line string) ([]Token, error) {
	var (
		tokens []Token
		depth  int
		start  int
	)
	parts := make([]string, 0, strings.Count(line, ",")+1)
	for i, r := range line {
		switch r {
		case '[':
			depth++
		case ']':
			if depth == 0 {
				return nil, fmt.Errorf("unbalanced `]` at position %d", i)
			}
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, line[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unterminated `[` in `%s`", line)
	}
	parts = append(parts, line[start:])

	for _, part := range parts {
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found || value == "" {
			return nil, fmt.Errorf("key `%s` with no value", part)
		}
		tok := Token{Key: key, Value: value}
		if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
			tok.Value = value[1 : len(value)-1]
			tok.Inside = '['
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}
