package document

import (
	"fmt"
	"strings"
	"testing"
)

func TestParseMapping(t *testing.T) {
	res := Parse("root:\n  name: x\n  version: 1\n  ratio: 0.5\n  on: true\n  empty:\n")
	if !res.OK() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	root := res.Tree.Get("root")
	if !root.IsMapping() {
		t.Fatalf("root kind = %v", root.Kind)
	}
	if got := root.Keys(); strings.Join(got, ",") != "name,version,ratio,on,empty" {
		t.Fatalf("keys = %v", got)
	}
	if v := root.Get("version").Value; v != int64(1) {
		t.Fatalf("version = %#v", v)
	}
	if v := root.Get("ratio").Value; v != 0.5 {
		t.Fatalf("ratio = %#v", v)
	}
	if v := root.Get("on").Value; v != true {
		t.Fatalf("on = %#v", v)
	}
	if !root.Get("empty").IsNull() {
		t.Fatalf("empty should be null")
	}
	p := root.PairFor("version")
	if p.KeyLine != 3 || p.KeyColumn != 3 {
		t.Fatalf("version position = %d:%d", p.KeyLine, p.KeyColumn)
	}
}

func TestParseEmptyDocument(t *testing.T) {
	for _, text := range []string{"", "# only a comment\n"} {
		res := Parse(text)
		if !res.OK() {
			t.Fatalf("Parse(%q) errors: %v", text, res.Errors)
		}
		if !res.Tree.IsNull() {
			t.Fatalf("Parse(%q) = %v, want null", text, res.Tree.Kind)
		}
	}
}

func TestParseSyntaxError(t *testing.T) {
	res := Parse("root:\n\tname: x\n")
	if res.OK() || res.Tree != nil {
		t.Fatalf("expected failure, got tree")
	}
	err := res.FirstError()
	if err == nil || err.Line < 1 || err.Column != 1 {
		t.Fatalf("unexpected error: %+v", err)
	}
	if err.Offset != LineOffset("root:\n\tname: x\n", err.Line) {
		t.Fatalf("offset %d does not start line %d", err.Offset, err.Line)
	}
}

func TestParseDuplicateKey(t *testing.T) {
	res := Parse("a: 1\nb: 2\na: 3\n")
	if res.OK() {
		t.Fatalf("expected duplicate key error")
	}
	if err := res.FirstError(); err.Line != 3 || !strings.Contains(err.Message, "already defined") {
		t.Fatalf("unexpected error: %+v", err)
	}
}

func TestParseMultipleDocuments(t *testing.T) {
	res := Parse("a: 1\n---\nb: 2\n")
	if res.OK() {
		t.Fatalf("expected single-document error")
	}
	if err := res.FirstError(); err.Message != "expected a single document" {
		t.Fatalf("message = %q", err.Message)
	}
}

func TestParseResolvesAliases(t *testing.T) {
	res := Parse("base: &b\n  fps: 5\ncam:\n  detect: *b\n")
	if !res.OK() {
		t.Fatalf("errors: %v", res.Errors)
	}
	fps := res.Tree.Lookup(ParsePath("cam", "detect", "fps"))
	if fps == nil || fps.Value != int64(5) {
		t.Fatalf("alias not resolved: %#v", fps)
	}
}

func TestParseRejectsAliasExpansion(t *testing.T) {
	var b strings.Builder
	b.WriteString("a0: &a0 [x, x, x, x, x, x, x, x, x, x]\n")
	for i := 1; i <= 9; i++ {
		refs := strings.TrimSuffix(strings.Repeat(fmt.Sprintf("*a%d, ", i-1), 10), ", ")
		fmt.Fprintf(&b, "a%d: &a%d [%s]\n", i, i, refs)
	}

	res := Parse(b.String())
	if res.OK() {
		t.Fatal("expected alias expansion to be rejected")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one", res.Errors)
	}
	if got := res.Errors[0].Message; got != "document contains excessive aliasing" {
		t.Errorf("message = %q", got)
	}
}

func TestParseAllowsRepeatedSmallAliases(t *testing.T) {
	var b strings.Builder
	b.WriteString("defaults: &d\n  fps: 5\n  width: 1280\n  height: 720\ncameras:\n")
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&b, "  cam%d:\n    detect: *d\n", i)
	}
	res := Parse(b.String())
	if !res.OK() {
		t.Fatalf("errors: %v", res.Errors)
	}
	if got := res.Tree.Get("cameras").Len(); got != 200 {
		t.Errorf("cameras = %d, want 200", got)
	}
}

func TestLineColumn(t *testing.T) {
	text := "ab\ncd\n值x"
	cases := []struct {
		offset     int
		line, col int
	}{
		{0, 1, 1},
		{2, 1, 3},
		{3, 2, 1},
		{6, 3, 1},
		{9, 3, 2},
	}
	for _, tc := range cases {
		l, c := LineColumn(text, tc.offset)
		if l != tc.line || c != tc.col {
			t.Errorf("LineColumn(%d) = %d:%d, want %d:%d", tc.offset, l, c, tc.line, tc.col)
		}
	}
}

func TestPrintRoundTrip(t *testing.T) {
	res := Parse("cameras:\n    front:\n        detect: {fps: 5}\n        roles: [detect, record]\n")
	if !res.OK() {
		t.Fatalf("errors: %v", res.Errors)
	}
	out, err := Print(res.Tree)
	if err != nil {
		t.Fatalf("Print: %v", err)
	}
	want := "cameras:\n  front:\n    detect:\n      fps: 5\n    roles:\n      - detect\n      - record\n"
	if out != want {
		t.Fatalf("Print =\n%s\nwant\n%s", out, want)
	}
	again := Parse(out)
	if !again.OK() || !Equal(res.Tree, again.Tree) {
		t.Fatalf("printed text does not reparse to the same tree")
	}
}

func TestPrintQuotesAmbiguousStrings(t *testing.T) {
	m := NewMapping()
	m.Set("version", NewScalar("1"))
	m.Set("note", NewScalar("a: b"))
	out, err := Print(m)
	if err != nil {
		t.Fatalf("Print: %v", err)
	}
	res := Parse(out)
	if !res.OK() || !Equal(m, res.Tree) {
		t.Fatalf("Print produced %q which does not reparse equal", out)
	}
}

func TestFlowText(t *testing.T) {
	if got := FlowText(NewSequence()); got != "[]" {
		t.Errorf("empty sequence = %q", got)
	}
	if got := FlowText(StringSequence("a", "b")); got != "[a, b]" {
		t.Errorf("string sequence = %q", got)
	}
	if got := FlowText(NewScalar(0.3)); got != "0.3" {
		t.Errorf("float = %q", got)
	}
	if got := KeyText("front door!"); got != "front door!" {
		t.Errorf("key = %q", got)
	}
	if got := KeyText("1"); got == "1" {
		t.Errorf("numeric key should be quoted, got %q", got)
	}
}

func TestPathString(t *testing.T) {
	p := ParsePath("cameras", 0, "ffmpeg", "inputs", 1, "path")
	if got := p.String(); got != "cameras[0].ffmpeg.inputs[1].path" {
		t.Fatalf("String() = %q", got)
	}
	if got := p.Parent().Last().Index; got != 1 {
		t.Fatalf("Parent().Last() = %d", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	res := Parse("a:\n  b: [1, 2]\n")
	clone := res.Tree.Clone()
	clone.Get("a").Get("b").Items[0].Value = int64(9)
	clone.Get("a").Set("c", NewScalar("x"))
	if res.Tree.Get("a").Get("b").Items[0].Value != int64(1) || res.Tree.Get("a").Has("c") {
		t.Fatalf("mutating clone changed original")
	}
	if Equal(res.Tree, clone) {
		t.Fatalf("Equal should see the difference")
	}
}

func TestEqualNumeric(t *testing.T) {
	if !Equal(NewScalar(1), NewScalar(1.0)) {
		t.Fatalf("1 and 1.0 should compare equal")
	}
	if Equal(NewScalar("1"), NewScalar(1)) {
		t.Fatalf("string and number should differ")
	}
}
