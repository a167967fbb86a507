package htmlsanitize

import (
	"reflect"
	"strings"
	"testing"
)

func TestStripText(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		multiline bool
		want      string
	}{
		{"plain", "Quarterly report", false, "Quarterly report"},
		{"script removed", `<script>alert(1)</script>report.pdf`, false, "report.pdf"},
		{"tags removed", "<b>bold</b> and <i>italic</i>", false, "bold and italic"},
		{"entities", "Q&amp;A", false, "Q&A"},
		{"literal angle text", "a < b", false, "a < b"},
		{"encoded element", "&lt;img src=x onerror=alert(1)&gt;", false, ""},
		{"encoded script around name", "&lt;script&gt;x&lt;/script&gt;report.pdf", false, "report.pdf"},
		{"double encoded", "&amp;lt;b&amp;gt;bold&amp;lt;/b&amp;gt;", false, "bold"},
		{"numeric entities", "&#60;iframe src=//evil&#62;&#60;/iframe&#62;notes", true, "notes"},
		{"whitespace collapsed", "  a \t b  ", false, "a b"},
		{"multiline kept", "line one\n  line   two ", true, "line one\nline two"},
		{"empty", "", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripText(tt.in, tt.multiline); got != tt.want {
				t.Errorf("StripText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanTags(t *testing.T) {
	got := CleanTags([]string{"Finance", " finance ", "<em>Q1</em>", "", "  ", "q1", "2024"})
	want := []string{"finance", "q1", "2024"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CleanTags() = %v, want %v", got, want)
	}

	got = CleanTags([]string{"&lt;script&gt;x&lt;/script&gt;", "&lt;b&gt;Q2&lt;/b&gt;"})
	if !reflect.DeepEqual(got, []string{"q2"}) {
		t.Errorf("CleanTags(encoded) = %v, want [q2]", got)
	}
	for _, tag := range got {
		if strings.ContainsAny(tag, "<>") {
			t.Errorf("tag %q still carries markup", tag)
		}
	}

	if got := CleanTags(nil); got == nil || len(got) != 0 {
		t.Errorf("CleanTags(nil) = %#v, want empty slice", got)
	}
}
