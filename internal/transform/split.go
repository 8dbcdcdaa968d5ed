package transform

import (
	"strings"
	"unicode"
)

// SplitStatements splits a script into single statements on ';'.
//
// Semicolons inside '...' and "..." literals, [bracketed] identifiers,
// -- line comments and /* block */ comments do not split. A CREATE TRIGGER
// body keeps its inner semicolons until the closing END. Chunks holding
// nothing but whitespace and comments are dropped. Returned statements are
// trimmed and carry no trailing ';'.
func SplitStatements(script string) []string {
	var (
		out  []string
		cur  strings.Builder // statement text, comments included
		code strings.Builder // statement text without comments
	)
	flush := func() {
		if strings.TrimSpace(code.String()) != "" {
			out = append(out, strings.TrimSpace(cur.String()))
		}
		cur.Reset()
		code.Reset()
	}

	rs := []rune(script)
	for i := 0; i < len(rs); i++ {
		c := rs[i]
		switch {
		case c == '\'' || c == '"' || c == '[':
			end := closing(c)
			j := i + 1
			for j < len(rs) {
				if rs[j] == end {
					// doubled quote is an escaped quote
					if end != ']' && j+1 < len(rs) && rs[j+1] == end {
						j += 2
						continue
					}
					break
				}
				j++
			}
			if j >= len(rs) {
				j = len(rs) - 1
			}
			cur.WriteString(string(rs[i : j+1]))
			code.WriteString(string(rs[i : j+1]))
			i = j
		case c == '-' && i+1 < len(rs) && rs[i+1] == '-':
			j := i
			for j < len(rs) && rs[j] != '\n' {
				j++
			}
			cur.WriteString(string(rs[i:j]))
			code.WriteByte(' ')
			i = j - 1
		case c == '/' && i+1 < len(rs) && rs[i+1] == '*':
			j := i + 2
			for j+1 < len(rs) && !(rs[j] == '*' && rs[j+1] == '/') {
				j++
			}
			j = min(j+1, len(rs)-1)
			cur.WriteString(string(rs[i : j+1]))
			code.WriteByte(' ')
			i = j
		case c == ';':
			if inTriggerBody(code.String()) {
				cur.WriteRune(c)
				code.WriteRune(c)
				continue
			}
			flush()
		default:
			cur.WriteRune(c)
			code.WriteRune(c)
		}
	}
	flush()
	return out
}

func closing(open rune) rune {
	if open == '[' {
		return ']'
	}
	return open
}

// inTriggerBody reports whether code opens a CREATE TRIGGER statement whose
// body has not reached its END yet.
func inTriggerBody(code string) bool {
	words := strings.FieldsFunc(strings.ToUpper(code), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	if len(words) < 2 || words[0] != "CREATE" {
		return false
	}
	trigger := false
	for _, w := range words[1:min(len(words), 3)] {
		if w == "TRIGGER" {
			trigger = true
		}
	}
	if !trigger {
		return false
	}
	return words[len(words)-1] != "END"
}
