package nls_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/pitabwire/nls"
)

type RewriteTestSuite struct {
	suite.Suite
}

func TestRewriteSuite(t *testing.T) {
	suite.Run(t, &RewriteTestSuite{})
}

func (s *RewriteTestSuite) TestRewrite() {
	testCases := []struct {
		name         string
		content      string
		expected     string
		expectedKeys []nls.LocalizeKey
		expectedMsgs []string
	}{
		{
			name:         "single call site",
			content:      `var m = localize('greeting.hello', 'Hello, {0}!');`,
			expected:     `var m = localize(0, null);`,
			expectedKeys: []nls.LocalizeKey{{Key: "greeting.hello"}},
			expectedMsgs: []string{"Hello, {0}!"},
		},
		{
			name: "sequential indices across the file",
			content: `let a = localize('first', 'First');` + "\n" +
				`let b = localize('second', 'Second');`,
			expected: `let a = localize(0, null);` + "\n" +
				`let b = localize(1, null);`,
			expectedKeys: []nls.LocalizeKey{{Key: "first"}, {Key: "second"}},
			expectedMsgs: []string{"First", "Second"},
		},
		{
			name:         "double quoted arguments",
			content:      `localize("q.key", "Quoted");`,
			expected:     `localize(0, null);`,
			expectedKeys: []nls.LocalizeKey{{Key: "q.key"}},
			expectedMsgs: []string{"Quoted"},
		},
		{
			name:         "structured first argument",
			content:      `localize({ key: 'save', comment: ['Button label', 'Keep it short'] }, 'Save');`,
			expected:     `localize(0, null);`,
			expectedKeys: []nls.LocalizeKey{{Key: "save", Comment: []string{"Button label", "Keep it short"}}},
			expectedMsgs: []string{"Save"},
		},
		{
			name:         "arguments spread over lines",
			content:      "localize(\n\t'multi.line',\n\t'Spread out'\n);",
			expected:     "localize(0, null);",
			expectedKeys: []nls.LocalizeKey{{Key: "multi.line"}},
			expectedMsgs: []string{"Spread out"},
		},
		{
			name:         "escape sequences decoded into the bundle",
			content:      `localize('esc', 'line1\nline2\té');`,
			expected:     `localize(0, null);`,
			expectedKeys: []nls.LocalizeKey{{Key: "esc"}},
			expectedMsgs: []string{"line1\nline2\té"},
		},
		{
			name:         "call inside template substitution",
			content:      "const s = `count: ${localize('count.label', 'Count')}`;",
			expected:     "const s = `count: ${localize(0, null)}`;",
			expectedKeys: []nls.LocalizeKey{{Key: "count.label"}},
			expectedMsgs: []string{"Count"},
		},
		{
			name:         "member call",
			content:      `var m = nls.localize('member.key', 'Member');`,
			expected:     `var m = nls.localize(0, null);`,
			expectedKeys: []nls.LocalizeKey{{Key: "member.key"}},
			expectedMsgs: []string{"Member"},
		},
		{
			name:         "extra arguments are preserved",
			content:      `localize('fmt.key', 'Hello {0}', userName);`,
			expected:     `localize(0, null, userName);`,
			expectedKeys: []nls.LocalizeKey{{Key: "fmt.key"}},
			expectedMsgs: []string{"Hello {0}"},
		},
		{
			name: "declaration followed by call",
			content: `function localize(key, message) { return message; }` + "\n" +
				`var m = localize('greeting.hello', 'Hello');`,
			expected: `function localize(key, message) { return message; }` + "\n" +
				`var m = localize(0, null);`,
			expectedKeys: []nls.LocalizeKey{{Key: "greeting.hello"}},
			expectedMsgs: []string{"Hello"},
		},
		{
			name:         "regex literal containing a quote",
			content:      `var re = /'/; var m = localize('a.b', 'B');`,
			expected:     `var re = /'/; var m = localize(0, null);`,
			expectedKeys: []nls.LocalizeKey{{Key: "a.b"}},
			expectedMsgs: []string{"B"},
		},
		{
			name:         "regex after return keyword",
			content:      `function test() { return /'+/; } localize('r.k', 'R');`,
			expected:     `function test() { return /'+/; } localize(0, null);`,
			expectedKeys: []nls.LocalizeKey{{Key: "r.k"}},
			expectedMsgs: []string{"R"},
		},
		{
			name:         "slash in a character class",
			content:      `var re = /[/']/; localize('c.k', 'C');`,
			expected:     `var re = /[/']/; localize(0, null);`,
			expectedKeys: []nls.LocalizeKey{{Key: "c.k"}},
			expectedMsgs: []string{"C"},
		},
		{
			name:         "division is not a regex",
			content:      `var half = total / 2; localize('d.k', 'D');`,
			expected:     `var half = total / 2; localize(0, null);`,
			expectedKeys: []nls.LocalizeKey{{Key: "d.k"}},
			expectedMsgs: []string{"D"},
		},
		{
			name:         "call after non-ascii text",
			content:      `var greet = '日本語'; var m = localize('w.k', 'W');`,
			expected:     `var greet = '日本語'; var m = localize(0, null);`,
			expectedKeys: []nls.LocalizeKey{{Key: "w.k"}},
			expectedMsgs: []string{"W"},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			result := nls.Rewrite(tc.content, nil)
			s.Require().Empty(result.Errors)
			s.Equal(tc.expected, result.Contents)
			s.Require().NotNil(result.Bundle)
			s.Equal(tc.expectedKeys, result.Bundle.Keys)
			s.Equal(tc.expectedMsgs, result.Bundle.Messages)
		})
	}
}

func (s *RewriteTestSuite) TestNonCallSitesAreIgnored() {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "line comment", content: "// localize('a', 'b')"},
		{name: "block comment", content: "/* localize('a', 'b') */"},
		{name: "single quoted string", content: `var s = 'localize("a", "b")';`},
		{name: "double quoted string", content: `var s = "localize('a', 'b')";`},
		{name: "template literal text", content: "var s = `localize('a', 'b')`;"},
		{name: "function declaration", content: `function localize(key, message) { return message; }`},
		{name: "function declaration with comment before the name", content: `function /* factory */ localize(key, message) { return key; }`},
		{name: "regex literal body", content: `var re = /localize\('a', 'b'\)/;`},
		{name: "different identifier", content: `deLocalize('a', 'b');`},
		{name: "identifier without call", content: `var fn = localize;`},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			result := nls.Rewrite(tc.content, nil)
			s.Require().Empty(result.Errors)
			s.Equal(tc.content, result.Contents)
			s.Equal(0, result.Bundle.Len())
		})
	}
}

func (s *RewriteTestSuite) TestInvalidCallSites() {
	testCases := []struct {
		name          string
		content       string
		expectedError string
	}{
		{
			name:          "first argument is a number",
			content:       `localize(42, 'x')`,
			expectedError: "(1,10): first argument of a localize call must either be a string literal or an object literal of type LocalizeInfo",
		},
		{
			name:          "first argument is an identifier",
			content:       `localize(key, 'x')`,
			expectedError: "(1,10): first argument of a localize call must either be a string literal or an object literal of type LocalizeInfo",
		},
		{
			name:          "missing second argument",
			content:       `localize('key')`,
			expectedError: "(1,15): second argument of a localize call must be a string literal",
		},
		{
			name:          "second argument is an identifier",
			content:       `localize('key', message)`,
			expectedError: "(1,17): second argument of a localize call must be a string literal",
		},
		{
			name:          "object literal without key property",
			content:       `localize({ comment: ['ctx'] }, 'x')`,
			expectedError: "first argument of a localize call must either be a string literal or an object literal of type LocalizeInfo",
		},
		{
			name:          "object literal with foreign property",
			content:       `localize({ key: 'k', other: 'v' }, 'x')`,
			expectedError: "first argument of a localize call must either be a string literal or an object literal of type LocalizeInfo",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			result := nls.Rewrite(tc.content, nil)
			s.Require().NotEmpty(result.Errors)
			s.Contains(result.Errors[0], tc.expectedError)

			s.Empty(result.Contents)
			s.Nil(result.Bundle)
			s.Nil(result.SourceMap)
		})
	}
}

func (s *RewriteTestSuite) TestErrorsSuppressValidSites() {
	content := `localize('good', 'Good');` + "\n" + `localize(42, 'bad');`

	result := nls.Rewrite(content, nil)
	s.Require().Len(result.Errors, 1)
	s.Contains(result.Errors[0], "(2,10)")
	s.Nil(result.Bundle)
	s.Empty(result.Contents)
}

func (s *RewriteTestSuite) TestErrorPositionsAreOneBased() {
	content := "\n\n  localize(1, 'x')"

	result := nls.Rewrite(content, nil)
	s.Require().Len(result.Errors, 1)
	s.Contains(result.Errors[0], "(3,12):")
}

func (s *RewriteTestSuite) TestColumnsCountUTF16CodeUnits() {
	// 'é' is one UTF-16 code unit, the emoji is a surrogate pair counting
	// two; byte or rune counting would both report a different column.
	content := `var s = 'é😀'; localize(1, 'x')`

	result := nls.Rewrite(content, nil)
	s.Require().Len(result.Errors, 1)
	s.Contains(result.Errors[0], "(1,25):")
}
