package macro

import (
	"testing"
)

func TestProcess(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no directives",
			in:   "plain text\nsecond line",
			want: "plain text\nsecond line",
		},
		{
			name: "space separated define",
			in:   "#define foo bar\nfoo fighters",
			want: "bar fighters",
		},
		{
			name: "slash separated define",
			in:   "#define/colou?r/color/\nfavourite colour and color",
			want: "favourite color and color",
		},
		{
			name: "custom separator",
			in:   "#define|a/b|A/B|\nuse a/b here",
			want: "use A/B here",
		},
		{
			name: "group reference",
			in:   "#define/(\\w+)@example\\.com/$1@test.invalid/\nmail: joe@example.com",
			want: "mail: joe@test.invalid",
		},
		{
			name: "rule applies only to later lines",
			in:   "foo early\n#define foo bar\nfoo late",
			want: "foo early\nbar late",
		},
		{
			name: "non-recursive applies once per line",
			in:   "#define/aa/a/\naaaa",
			want: "aa",
		},
		{
			name: "recursive repeats until stable",
			in:   "#define(recursive)/aa/a/\naaaa",
			want: "a",
		},
		{
			name: "undef removes named rule",
			in:   "#define(id:x) foo bar\nfoo one\n#undef x\nfoo two",
			want: "bar one\nfoo two",
		},
		{
			name: "undef leaves unnamed rules",
			in:   "#define foo bar\n#undef foo\nfoo",
			want: "bar",
		},
		{
			name: "end rule skips per-line phase",
			in:   "#define(end) foo bar\nfoo\n#define foo baz\nfoo",
			want: "bar\nbaz",
		},
		{
			name: "linestogether matches across lines",
			in:   "#define(end,linestogether)/one\\ntwo/joined/\nX one\ntwo Y",
			want: "X joined Y",
		},
		{
			name: "end without linestogether stays per line",
			in:   "#define(end)/one\\ntwo/joined/\nX one\ntwo Y",
			want: "X one\ntwo Y",
		},
		{
			name: "literal flag with quoted words",
			in:   "#define(literal) \"a b\" \"c d\"\nsay a b now",
			want: "say c d now",
		},
		{
			name: "malformed define dropped",
			in:   "#define\ntext",
			want: "text",
		},
		{
			name: "bad pattern dropped",
			in:   "#define/[unclosed/x/\ntext [unclosed stays",
			want: "text [unclosed stays",
		},
		{
			name: "crlf input",
			in:   "#define foo bar\r\nfoo\r\n",
			want: "bar\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(nil).Process(tt.in)
			if got != tt.want {
				t.Errorf("Process() = %q, want %q", got, tt.want)
			}
		})
	}
}
