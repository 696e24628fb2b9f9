package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func kinds(src string) []Kind {
	l := New(src)
	var out []Kind
	for {
		tok := l.Next()
		out = append(out, tok.Kind)
		if tok.Kind == EOF || tok.Kind == Error {
			return out
		}
	}
}

func TestScansIdentifiersNumbersAndOperators(t *testing.T) {
	toks := kinds(`REPLACE AGE WITH AGE + 1`)
	require.Equal(t, []Kind{Keyword, Ident, Keyword, Ident, Plus, Number, EOF}, toks)
}

func TestDottedKeywords(t *testing.T) {
	toks := kinds(`IF .NOT. FOUND() .AND. .T.`)
	require.Equal(t, []Kind{Keyword, Not, Ident, LParen, RParen, And, True_, EOF}, toks)
}

func TestBareDotIsTerminator(t *testing.T) {
	toks := kinds(`GO TOP.`)
	require.Equal(t, []Kind{Keyword, Keyword, Dot, EOF}, toks)
}

func TestStringLiterals(t *testing.T) {
	l := New(`"hi" 'there' [mixed 'quote' here]`)
	var texts []string
	for {
		tok := l.Next()
		if tok.Kind == EOF {
			break
		}
		texts = append(texts, tok.Text)
	}
	require.Equal(t, []string{"hi", "there", "mixed 'quote' here"}, texts)
}

func TestDateLiteral(t *testing.T) {
	l := New(`{01/15/26}`)
	tok := l.Next()
	require.Equal(t, DateLit, tok.Kind)
	require.Equal(t, "01/15/26", tok.Text)
}

func TestLineCommentsAreSkipped(t *testing.T) {
	toks := kinds("* a full comment line\nUSE customer && trailing comment\n")
	require.Equal(t, []Kind{Keyword, Ident, EOF}, toks)
}

func TestPeekDoesNotConsume(t *testing.T) {
	l := New("USE customer")
	require.Equal(t, Keyword, l.Peek().Kind)
	require.Equal(t, Keyword, l.Peek().Kind)
	require.Equal(t, Keyword, l.Next().Kind)
	require.Equal(t, Ident, l.Next().Kind)
}

func TestUnterminatedStringIsError(t *testing.T) {
	l := New(`"oops`)
	tok := l.Next()
	require.Equal(t, Error, tok.Kind)
}

func TestBangEqualsIsNotEqual(t *testing.T) {
	toks := kinds(`AGE != 30`)
	require.Equal(t, []Kind{Ident, Ne, Number, EOF}, toks)
}

func TestYesNoDottedLiterals(t *testing.T) {
	toks := kinds(`.Y. .N.`)
	require.Equal(t, []Kind{True_, False_, EOF}, toks)
}

func TestAtTokenForSayGet(t *testing.T) {
	toks := kinds(`@ 1,2 SAY NAME`)
	require.Equal(t, []Kind{At, Number, Comma, Number, Keyword, Ident, EOF}, toks)
}
