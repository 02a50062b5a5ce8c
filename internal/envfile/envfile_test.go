package envfile

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const fixture = `
# comment
first=1st
# another comment

  # and here too
second="2"nd
empty=
empty =
empty = # with comment
 multiline = "one
 two =
    three
    " # with a comment
bad_comment = this is some stuff# with a bad comment
good_comment=this is some stuff # with a good comment
unterminated_quote=this isn't complete

until=it's terminated here

escaped_dquote="this \" is escaped"
escaped_squote='this \' does not work
mixed="this is quoted" in 'multiple ways'
blah="one
two
three
"
trailer =  some text here  # trailer

triple_dquote="""
this has "triple" 'quotes'
"""
empty_string=""
foo=\
bar=43
some=this is the $PATH
none=this $does not ${exist}
quoted_comment = " # this is not a comment" # but this is
  # newlines end comments, even if escaped \
not_set = # here too \

escaped = \$do $\{not} ${expand\}

triple_squote=''' #
# keep this
ignore ', ", and \ in here
also ignore $PATH expansion
'''
     `

func TestExpandFixture(t *testing.T) {
	in := map[string]string{
		"PATH":  "/usr/bin:/bin",
		"empty": "some",
	}
	want := map[string]string{
		"PATH":               "/usr/bin:/bin",
		"bad_comment":        "this is some stuff# with a bad comment",
		"blah":               "one\ntwo\nthree\n",
		"empty_string":       "",
		"escaped":            "$do ${not} ${expand}",
		"escaped_dquote":     `this " is escaped`,
		"escaped_squote":     `this \ does not work`,
		"first":              "1st",
		"foo":                "\nbar=43",
		"good_comment":       "this is some stuff",
		"mixed":              "this is quoted in multiple ways",
		"multiline":          "one\n two =\n    three\n    ",
		"none":               "this  not ",
		"quoted_comment":     " # this is not a comment",
		"second":             "2nd",
		"some":               "this is the /usr/bin:/bin",
		"trailer":            "some text here",
		"triple_dquote":      "\nthis has \"triple\" 'quotes'\n",
		"triple_squote":      " #\n# keep this\nignore ', \", and \\ in here\nalso ignore $PATH expansion\n",
		"unterminated_quote": "this isnt complete\n\nuntil=its terminated here",
	}
	got, err := Expand(fixture, in)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("env mismatch (-want +got):\n%s", diff)
	}
	if in["empty"] != "some" {
		t.Fatalf("input env modified")
	}
}

func TestExpandCaseInsensitive(t *testing.T) {
	caseInsensitive = true
	t.Cleanup(func() { caseInsensitive = false })

	got, err := Expand("path_copy=$path\nlower=x", map[string]string{"PATH": "/bin"})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := map[string]string{"PATH": "/bin", "PATH_COPY": "/bin", "LOWER": "x"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("env mismatch (-want +got):\n%s", diff)
	}
}

func TestUnquotedValueTrimmed(t *testing.T) {
	for _, text := range []string{"X=V", "X = V", "  X=   V   ", "\tX\t=\tV\t# note"} {
		got, err := Expand(text, nil)
		if err != nil {
			t.Fatalf("%q: %v", text, err)
		}
		if got["X"] != "V" {
			t.Fatalf("%q: X=%q", text, got["X"])
		}
	}
}

func TestTripleDoubleQuotePreservesContent(t *testing.T) {
	got, err := Expand("X=\"\"\"  keep 'this'\n  and \\$that \\{x\\}  \"\"\"", map[string]string{"that": "no"})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if want := "  keep 'this'\n  and $that {x}  "; got["X"] != want {
		t.Fatalf("X=%q, want %q", got["X"], want)
	}
}

func TestSubstitutionBindsAtPointOfUse(t *testing.T) {
	ops, err := Evaluate("A=1\nB=$A\nA=2\nC=${A}${B}", nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	want := []Op{
		{Name: "A", Value: "1"},
		{Name: "B", Value: "1"},
		{Name: "A", Value: "2"},
		{Name: "C", Value: "21"},
	}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsetThenReference(t *testing.T) {
	got, err := Expand("HOME=\nX=[$HOME]", map[string]string{"HOME": "/root"})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if _, ok := got["HOME"]; ok {
		t.Fatalf("HOME still set")
	}
	if got["X"] != "[]" {
		t.Fatalf("X=%q", got["X"])
	}
}

func TestApplyUnset(t *testing.T) {
	ops, err := Evaluate("FOO =", nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	env := map[string]string{"FOO": "bar", "KEEP": "1"}
	Apply(env, ops)
	if diff := cmp.Diff(map[string]string{"KEEP": "1"}, env); diff != "" {
		t.Fatalf("env mismatch (-want +got):\n%s", diff)
	}
	empty := map[string]string{}
	Apply(empty, ops)
	if len(empty) != 0 {
		t.Fatalf("unset of missing name changed env: %v", empty)
	}
}

func TestEmptyQuotesSetEmptyValue(t *testing.T) {
	for _, text := range []string{`X=""`, `X=''`, `X=""""""`, `X=''''''`} {
		ops, err := Evaluate(text, nil)
		if err != nil {
			t.Fatalf("%s: %v", text, err)
		}
		if len(ops) != 1 || ops[0].Unset || ops[0].Value != "" {
			t.Fatalf("%s: got %+v", text, ops)
		}
	}
}

func TestSingleQuotesNeverSubstitute(t *testing.T) {
	lookup := MapLookup(map[string]string{"HOME": "/home/me"})
	for text, want := range map[string]string{
		`X='$HOME'`:       "$HOME",
		`X='''$HOME'''`:   "$HOME",
		`X='a\nb'`:        `a\nb`,
		`X="$HOME"`:       "/home/me",
		`X="""${HOME}"""`: "/home/me",
		`X=$HOME`:         "/home/me",
		`X="\$HOME"`:      "$HOME",
	} {
		ops, err := Evaluate(text, lookup)
		if err != nil {
			t.Fatalf("%s: %v", text, err)
		}
		if ops[0].Value != want {
			t.Fatalf("%s: got %q, want %q", text, ops[0].Value, want)
		}
	}
}

func TestSubstituteForms(t *testing.T) {
	lookup := MapLookup(map[string]string{
		"foo":  "bar",
		"path": "/a/b/file.txt",
		"user": "John Doe",
	})
	cases := map[string]string{
		"This $variable is ${unknown}.": "This  is .",
		"Some $foo is ${path}.":         "Some bar is /a/b/file.txt.",
		"$user":                         "John Doe",
		"${user}s":                      "John Does",
		"${incomplete":                  "${incomplete",
		"$1abc":                         "$1abc",
	}
	for in, want := range cases {
		if got := substitute(in, lookup); got != want {
			t.Fatalf("substitute(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		text   string
		reason string
		line   int
	}{
		{"ABC", "expected '=' after variable name", 1},
		{"= XYZ", "expected a variable assignment or comment", 1},
		{"ABC XYZ", "expected '=' after variable name", 1},
		{`ABC="123`, "expected a matching end quote", 1},
		{`ABC=123"`, "expected a matching end quote", 1},
		{"A=1\nB='open\n\n", "expected a matching end quote", 2},
		{"A=1\n\n1A=2", "expected a variable assignment or comment", 3},
		{"A=1\nexport B=2", "expected '=' after variable name", 2},
		{`A=trailing\`, "unterminated escape sequence", 1},
		{`A="x\`, "unterminated escape sequence", 1},
		{`"A"=1`, "expected a variable assignment or comment", 1},
	}
	for _, c := range cases {
		t.Run(c.text, func(t *testing.T) {
			_, err := Parse(c.text)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
			if perr.Reason != c.reason {
				t.Fatalf("reason %q, want %q", perr.Reason, c.reason)
			}
			if perr.Line != c.line {
				t.Fatalf("line %d, want %d", perr.Line, c.line)
			}
			if !strings.Contains(perr.Error(), c.reason) {
				t.Fatalf("message %q", perr.Error())
			}
		})
	}
}

func TestParseErrorAppliesNothing(t *testing.T) {
	ops, err := Evaluate("A=1\nB=2\nC='oops", nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if ops != nil {
		t.Fatalf("partial result returned: %v", ops)
	}
}

func TestParseErrorText(t *testing.T) {
	_, err := Parse("A=1\n  B C\n")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if perr.Text != "  B C" || perr.Column != 5 {
		t.Fatalf("got text %q column %d", perr.Text, perr.Column)
	}
}

func TestCommentHandling(t *testing.T) {
	got, err := Expand("# A=1\n  # B=2\nC=3 # D=4\nE=#5\nF='#6' #7", nil)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := map[string]string{"C": "3", "E": "#5", "F": "#6"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("env mismatch (-want +got):\n%s", diff)
	}
}

func TestAssignmentRaw(t *testing.T) {
	as, err := Parse(`A = "x $Y"'z'`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(as) != 1 || as[0].Name != "A" || as[0].Raw() != "x $Yz" || as[0].Unset() {
		t.Fatalf("got %+v", as)
	}
}

func TestTokenizeRoundTrip(t *testing.T) {
	inputs := []string{
		fixture,
		"A=\\\nB=2",
		`A=" #" #`,
		"A=$foo=bar",
		"\\",
		"xé=é\\é",
	}
	for _, in := range inputs {
		var b strings.Builder
		for _, tok := range tokenize(in) {
			if tok.value == "" {
				t.Fatalf("empty %s token in %q", tok.kind, in)
			}
			b.WriteString(tok.value)
		}
		if b.String() != in {
			t.Fatalf("tokens do not reproduce %q", in)
		}
	}
}

func TestTokenizeKinds(t *testing.T) {
	toks := tokenize("A = '''x''' \"\"\"y\"\"\" #c\n\\$")
	var kinds []string
	for _, tok := range toks {
		kinds = append(kinds, tok.kind.String())
	}
	want := []string{
		"TEXT", "WS", "ASSIGN", "WS",
		"SQUOTE", "TEXT", "SQUOTE", "WS",
		"DQUOTE", "TEXT", "DQUOTE", "WS",
		"COMMENT", "TEXT", "NEWLINE", "ESCAPE",
	}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
	if last := toks[len(toks)-1]; last.line != 2 || last.col != 1 {
		t.Fatalf("escape at %d:%d", last.line, last.col)
	}
}
