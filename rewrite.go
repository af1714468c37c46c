package nls

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pitabwire/nls/sourcemap"
)

// RewriteResult is the outcome of rewriting one source file. When Errors is
// non empty the file failed extraction and every other field is nil; callers
// must not emit output for it.
type RewriteResult struct {
	Contents  string
	SourceMap *sourcemap.SourceMap
	Bundle    *MessageBundle
	Errors    []string
}

// Rewrite scans source text for localize call sites, replaces the key and
// default message arguments of every valid site with its zero based index
// followed by null, and collects the extracted pairs into a bundle. A source
// map supplied alongside the text is remapped through the edits so rewritten
// positions keep resolving to the original sources.
//
// Rewrite is a pure function of its inputs; srcMap is only mutated when the
// whole file rewrites cleanly.
func Rewrite(content string, srcMap *sourcemap.SourceMap) *RewriteResult {
	rw := &rewriter{
		sc:     &scanner{src: content},
		bundle: &MessageBundle{},
	}
	rw.run()

	if len(rw.errors) > 0 {
		return &RewriteResult{Errors: rw.errors}
	}

	if srcMap != nil {
		mapEdits := make([]sourcemap.Edit, len(rw.edits))
		for i, e := range rw.edits {
			mapEdits[i] = e.Edit
		}
		if err := srcMap.Remap(mapEdits); err != nil {
			return &RewriteResult{Errors: []string{err.Error()}}
		}
	}

	return &RewriteResult{
		Contents:  applyEdits(content, rw.edits),
		SourceMap: srcMap,
		Bundle:    rw.bundle,
	}
}

// textEdit pairs the byte range of an edit with its line/column form.
type textEdit struct {
	sourcemap.Edit
	startOff int
	endOff   int
}

func applyEdits(content string, edits []textEdit) string {
	var b strings.Builder
	b.Grow(len(content))
	last := 0
	for _, e := range edits {
		b.WriteString(content[last:e.startOff])
		b.WriteString(e.NewText)
		last = e.endOff
	}
	b.WriteString(content[last:])
	return b.String()
}

type rewriter struct {
	sc     *scanner
	bundle *MessageBundle
	edits  []textEdit
	errors []string
	index  int
}

func (rw *rewriter) errorf(at sourcemap.Pos, format string, args ...any) {
	rw.errors = append(rw.errors,
		fmt.Sprintf("(%d,%d): %s", at.Line+1, at.Col+1, fmt.Sprintf(format, args...)))
}

// run walks the whole file. String, template and regex literals and comments
// never produce call sites; identifiers named localize followed by an opening
// parenthesis do. Template literal substitutions are scanned as code again.
func (rw *rewriter) run() {
	rw.scanCode(false)
}

// jsKeywords are identifiers after which a '/' opens a regex literal rather
// than a division.
var jsKeywords = map[string]bool{
	"case": true, "delete": true, "do": true, "else": true, "in": true,
	"instanceof": true, "new": true, "of": true, "return": true,
	"typeof": true, "void": true, "yield": true,
}

// scanCode walks code until end of input or, when stopAtBrace is set, the
// closing brace matching an already consumed "${". Whitespace and comments
// are transparent: they never reset the token state that guards function
// declarations and regex detection.
func (rw *rewriter) scanCode(stopAtBrace bool) {
	sc := rw.sc
	prevIdent := ""
	// prevValue records that the last significant token could end an
	// expression, in which case a following '/' is a division. Everywhere
	// else a '/' opens a regex literal.
	prevValue := false
	depth := 0

	for !sc.eof() {
		c := sc.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			sc.advance()
			continue
		case c == '/' && sc.peekAt(1) == '/':
			sc.skipLineComment()
			continue
		case c == '/' && sc.peekAt(1) == '*':
			sc.skipBlockComment()
			continue
		case c == '\'' || c == '"':
			sc.skipString(c)
			prevValue = true
		case c == '`':
			rw.scanTemplate()
			prevValue = true
		case c == '/':
			if prevValue {
				sc.advance()
				prevValue = false
			} else {
				sc.skipRegex()
				prevValue = true
			}
		case isIdentStart(c):
			ident := sc.readIdent()
			if ident == "localize" && prevIdent != "function" && rw.isCall() {
				rw.scanCall()
				prevIdent = ""
				prevValue = true
				continue
			}
			prevIdent = ident
			prevValue = !jsKeywords[ident]
			continue
		case c >= '0' && c <= '9':
			sc.advance()
			prevValue = true
		case c == ')' || c == ']':
			sc.advance()
			prevValue = true
		case c == '{' && stopAtBrace:
			depth++
			sc.advance()
			prevValue = false
		case c == '}' && stopAtBrace:
			sc.advance()
			if depth == 0 {
				return
			}
			depth--
			prevValue = false
		default:
			sc.advance()
			prevValue = false
		}
		prevIdent = ""
	}
}

// isCall reports whether, past trivia, the scanner sits on an opening
// parenthesis, and consumes it when it does.
func (rw *rewriter) isCall() bool {
	rw.sc.skipTrivia()
	if rw.sc.peek() != '(' {
		return false
	}
	rw.sc.advance()
	return true
}

// scanTemplate skips a template literal, handing each ${...} substitution
// back to the main scan so call sites inside it are still found.
func (rw *rewriter) scanTemplate() {
	sc := rw.sc
	sc.advance() // opening backtick
	for !sc.eof() {
		switch {
		case sc.peek() == '\\':
			sc.advance()
			sc.advance()
		case sc.peek() == '`':
			sc.advance()
			return
		case sc.peek() == '$' && sc.peekAt(1) == '{':
			sc.advance()
			sc.advance()
			rw.scanCode(true)
		default:
			sc.advance()
		}
	}
}

const (
	errFirstArgument  = "first argument of a localize call must either be a string literal or an object literal of type LocalizeInfo"
	errSecondArgument = "second argument of a localize call must be a string literal"
)

// scanCall parses the first two arguments of a localize call whose opening
// parenthesis has just been consumed. Valid sites are assigned the next
// sequential index and scheduled for rewrite; invalid ones only record an
// error and scanning resumes right where parsing stopped.
func (rw *rewriter) scanCall() {
	sc := rw.sc
	sc.skipTrivia()

	argStart := sc.pos()
	argStartOff := sc.off

	var key LocalizeKey
	switch {
	case sc.peek() == '\'' || sc.peek() == '"':
		value, ok := rw.readStringLiteral()
		if !ok {
			return
		}
		key = LocalizeKey{Key: value}
	case sc.peek() == '{':
		parsed, ok := rw.readLocalizeInfo()
		if !ok {
			return
		}
		key = parsed
	default:
		rw.errorf(argStart, errFirstArgument)
		return
	}

	sc.skipTrivia()
	if sc.peek() != ',' {
		rw.errorf(sc.pos(), errSecondArgument)
		return
	}
	sc.advance()
	sc.skipTrivia()

	if sc.peek() != '\'' && sc.peek() != '"' {
		rw.errorf(sc.pos(), errSecondArgument)
		return
	}
	message, ok := rw.readStringLiteral()
	if !ok {
		return
	}

	rw.edits = append(rw.edits, textEdit{
		Edit: sourcemap.Edit{
			Start:   argStart,
			End:     sc.pos(),
			NewText: strconv.Itoa(rw.index) + ", null",
		},
		startOff: argStartOff,
		endOff:   sc.off,
	})
	rw.bundle.Add(key, message)
	rw.index++
}

// readLocalizeInfo parses an object literal of the shape
// {key: string, comment: [string...]}. Any other property or value shape is a
// validation error.
func (rw *rewriter) readLocalizeInfo() (LocalizeKey, bool) {
	sc := rw.sc
	objAt := sc.pos()
	sc.advance() // '{'

	var key LocalizeKey
	seenKey := false
	for {
		sc.skipTrivia()
		if sc.eof() {
			rw.errorf(sc.pos(), "unexpected end of file in localize call")
			return LocalizeKey{}, false
		}
		if sc.peek() == '}' {
			sc.advance()
			break
		}

		nameAt := sc.pos()
		name, ok := rw.readPropertyName()
		if !ok {
			return LocalizeKey{}, false
		}
		sc.skipTrivia()
		if sc.peek() != ':' {
			rw.errorf(sc.pos(), errFirstArgument)
			return LocalizeKey{}, false
		}
		sc.advance()
		sc.skipTrivia()

		switch name {
		case "key":
			value, ok := rw.readStringLiteralAsProperty(nameAt)
			if !ok {
				return LocalizeKey{}, false
			}
			key.Key = value
			seenKey = true
		case "comment":
			comment, ok := rw.readCommentArray()
			if !ok {
				return LocalizeKey{}, false
			}
			key.Comment = comment
		default:
			rw.errorf(nameAt, errFirstArgument)
			return LocalizeKey{}, false
		}

		sc.skipTrivia()
		if sc.peek() == ',' {
			sc.advance()
			continue
		}
		if sc.peek() != '}' {
			rw.errorf(sc.pos(), errFirstArgument)
			return LocalizeKey{}, false
		}
	}

	if !seenKey || key.Key == "" {
		rw.errorf(objAt, errFirstArgument)
		return LocalizeKey{}, false
	}
	return key, true
}

func (rw *rewriter) readPropertyName() (string, bool) {
	sc := rw.sc
	if sc.peek() == '\'' || sc.peek() == '"' {
		return rw.readStringLiteral()
	}
	if isIdentStart(sc.peek()) {
		return sc.readIdent(), true
	}
	rw.errorf(sc.pos(), errFirstArgument)
	return "", false
}

func (rw *rewriter) readStringLiteralAsProperty(at sourcemap.Pos) (string, bool) {
	if rw.sc.peek() != '\'' && rw.sc.peek() != '"' {
		rw.errorf(at, errFirstArgument)
		return "", false
	}
	return rw.readStringLiteral()
}

// readCommentArray parses ["...", "..."].
func (rw *rewriter) readCommentArray() ([]string, bool) {
	sc := rw.sc
	if sc.peek() != '[' {
		rw.errorf(sc.pos(), errFirstArgument)
		return nil, false
	}
	sc.advance()

	var comment []string
	for {
		sc.skipTrivia()
		if sc.eof() {
			rw.errorf(sc.pos(), "unexpected end of file in localize call")
			return nil, false
		}
		if sc.peek() == ']' {
			sc.advance()
			return comment, true
		}
		if sc.peek() != '\'' && sc.peek() != '"' {
			rw.errorf(sc.pos(), errFirstArgument)
			return nil, false
		}
		value, ok := rw.readStringLiteral()
		if !ok {
			return nil, false
		}
		comment = append(comment, value)

		sc.skipTrivia()
		if sc.peek() == ',' {
			sc.advance()
		}
	}
}

// readStringLiteral consumes a quoted literal and returns its decoded value.
func (rw *rewriter) readStringLiteral() (string, bool) {
	sc := rw.sc
	quote := sc.peek()
	sc.advance()

	var b strings.Builder
	for {
		if sc.eof() {
			rw.errorf(sc.pos(), "unterminated string literal in localize call")
			return "", false
		}
		c := sc.peek()
		if c == quote {
			sc.advance()
			return b.String(), true
		}
		if c != '\\' {
			sc.advance()
			b.WriteByte(c)
			continue
		}

		sc.advance()
		if sc.eof() {
			rw.errorf(sc.pos(), "unterminated string literal in localize call")
			return "", false
		}
		e := sc.peek()
		sc.advance()
		switch e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\n':
			// line continuation
		case 'x':
			b.WriteRune(rw.readHexEscape(2))
		case 'u':
			if sc.peek() == '{' {
				sc.advance()
				b.WriteRune(rw.readBracedEscape())
			} else {
				b.WriteRune(rw.readHexEscape(4))
			}
		default:
			b.WriteByte(e)
		}
	}
}

func (rw *rewriter) readHexEscape(digits int) rune {
	sc := rw.sc
	v := 0
	for i := 0; i < digits && !sc.eof(); i++ {
		d, ok := hexDigit(sc.peek())
		if !ok {
			break
		}
		v = v<<4 | d
		sc.advance()
	}
	return rune(v)
}

func (rw *rewriter) readBracedEscape() rune {
	sc := rw.sc
	v := 0
	for !sc.eof() && sc.peek() != '}' {
		d, ok := hexDigit(sc.peek())
		if !ok {
			break
		}
		v = v<<4 | d
		sc.advance()
	}
	if sc.peek() == '}' {
		sc.advance()
	}
	return rune(v)
}

func hexDigit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// scanner walks source text byte wise while tracking zero based line and
// column positions.
type scanner struct {
	src  string
	off  int
	line int
	col  int
}

func (s *scanner) eof() bool {
	return s.off >= len(s.src)
}

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.off]
}

func (s *scanner) peekAt(n int) byte {
	if s.off+n >= len(s.src) {
		return 0
	}
	return s.src[s.off+n]
}

func (s *scanner) pos() sourcemap.Pos {
	return sourcemap.Pos{Line: s.line, Col: s.col}
}

// advance consumes one character. Columns count UTF-16 code units, the unit
// source map v3 positions are expressed in, so edits stay aligned with the
// map even after non-ASCII text.
func (s *scanner) advance() {
	if s.eof() {
		return
	}
	c := s.src[s.off]
	if c == '\n' {
		s.line++
		s.col = 0
		s.off++
		return
	}
	if c < utf8.RuneSelf {
		s.col++
		s.off++
		return
	}
	r, size := utf8.DecodeRuneInString(s.src[s.off:])
	s.off += size
	if r > 0xFFFF {
		s.col += 2
	} else {
		s.col++
	}
}

func (s *scanner) readIdent() string {
	start := s.off
	for !s.eof() && isIdentPart(s.peek()) {
		s.advance()
	}
	return s.src[start:s.off]
}

func (s *scanner) skipLineComment() {
	for !s.eof() && s.peek() != '\n' {
		s.advance()
	}
}

func (s *scanner) skipBlockComment() {
	s.advance()
	s.advance()
	for !s.eof() {
		if s.peek() == '*' && s.peekAt(1) == '/' {
			s.advance()
			s.advance()
			return
		}
		s.advance()
	}
}

// skipString consumes a quoted literal without decoding it.
func (s *scanner) skipString(quote byte) {
	s.advance()
	for !s.eof() {
		c := s.peek()
		if c == '\\' {
			s.advance()
			s.advance()
			continue
		}
		s.advance()
		if c == quote {
			return
		}
	}
}

// skipRegex consumes a regex literal whose opening '/' is current. A '/'
// inside a character class does not terminate it; an unterminated literal
// ends at the line break.
func (s *scanner) skipRegex() {
	s.advance()
	inClass := false
	for !s.eof() {
		c := s.peek()
		if c == '\\' {
			s.advance()
			s.advance()
			continue
		}
		if c == '\n' {
			return
		}
		s.advance()
		switch {
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			for !s.eof() && isIdentPart(s.peek()) {
				s.advance()
			}
			return
		}
	}
}

// skipTrivia consumes whitespace and comments.
func (s *scanner) skipTrivia() {
	for !s.eof() {
		c := s.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			s.advance()
		case c == '/' && s.peekAt(1) == '/':
			s.skipLineComment()
		case c == '/' && s.peekAt(1) == '*':
			s.skipBlockComment()
		default:
			return
		}
	}
}
