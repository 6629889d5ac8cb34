package rule

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes
const (
	whitespaceCode = iota
	identifierCode
	operatorCode
	numberCode
	quotedTextCode
	bareTextCode
)

// Token definitions
var (
	whitespaceToken = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	identifierToken = parsly.NewToken(identifierCode, "Identifier", newIdentifierMatcher())
	operatorToken   = parsly.NewToken(operatorCode, "Operator", newOperatorMatcher())
	numberToken     = parsly.NewToken(numberCode, "Number", newNumberMatcher())
	quotedTextToken = parsly.NewToken(quotedTextCode, "QuotedText", newQuotedTextMatcher())
	bareTextToken   = parsly.NewToken(bareTextCode, "BareText", newBareTextMatcher())
)

func newIdentifierMatcher() parsly.Matcher {
	return &identifierMatcher{}
}

func newOperatorMatcher() parsly.Matcher {
	return &operatorMatcher{}
}

func newNumberMatcher() parsly.Matcher {
	return &numberMatcher{}
}

func newQuotedTextMatcher() parsly.Matcher {
	return &quotedTextMatcher{}
}

func newBareTextMatcher() parsly.Matcher {
	return &bareTextMatcher{}
}

// identifierMatcher matches a payload field reference, allowing dotted paths
// such as expense.amount
type identifierMatcher struct{}

func (m *identifierMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos >= size {
		return 0
	}
	if !isLetter(input[pos]) && input[pos] != '_' {
		return 0
	}
	matched := 1
	for i := pos + 1; i < size; i++ {
		if isLetter(input[i]) || isDigit(input[i]) || input[i] == '_' || input[i] == '.' {
			matched++
			continue
		}
		break
	}
	return matched
}

// operatorMatcher matches comparison operators: ==, !=, >=, <=, >, <
type operatorMatcher struct{}

func (m *operatorMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos >= size {
		return 0
	}
	switch input[pos] {
	case '=', '!':
		if pos+1 < size && input[pos+1] == '=' {
			return 2
		}
		return 0
	case '>', '<':
		if pos+1 < size && input[pos+1] == '=' {
			return 2
		}
		return 1
	}
	return 0
}

// numberMatcher matches integer and decimal literals with an optional sign
type numberMatcher struct{}

func (m *numberMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos >= size {
		return 0
	}
	matched := 0
	if input[pos] == '-' {
		matched++
	}
	digits := 0
	hasDot := false
	for i := pos + matched; i < size; i++ {
		if isDigit(input[i]) {
			matched++
			digits++
			continue
		}
		if input[i] == '.' && !hasDot {
			hasDot = true
			matched++
			continue
		}
		break
	}
	if digits == 0 {
		return 0
	}
	return matched
}

// quotedTextMatcher matches a double- or single-quoted literal including
// its quotes
type quotedTextMatcher struct{}

func (m *quotedTextMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos >= size {
		return 0
	}
	quote := input[pos]
	if quote != '"' && quote != '\'' {
		return 0
	}
	for i := pos + 1; i < size; i++ {
		if input[i] == quote {
			return i - pos + 1
		}
	}
	return 0
}

// bareTextMatcher matches an unquoted literal up to the next whitespace
type bareTextMatcher struct{}

func (m *bareTextMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	matched := 0
	for i := pos; i < size; i++ {
		if input[i] == ' ' || input[i] == '\t' {
			break
		}
		matched++
	}
	return matched
}

// Helper functions
func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
