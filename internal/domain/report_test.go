package domain

import (
	"strings"
	"testing"
	"time"
)

func TestFinalize_SortAndSummary(t *testing.T) {
	r := ExtractReport{
		Source:    "/tmp/en.zip",
		Language:  "en",
		Mode:      "files",
		StartedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600)),
		Items: []DocResult{
			{Movie: "200", Doc: "2", Status: StatusExtracted, Lines: 3},
			{Movie: "100", Doc: "9", Status: StatusSkipped, ErrorCode: ErrCodeFilteredCased},
			{Movie: "100", Doc: "1", Status: StatusExtracted, Lines: 7},
			{Movie: "100", Doc: "5", Status: StatusFailed, ErrorCode: ErrCodeParseFailed},
		},
	}
	r.FinishedAt = r.StartedAt.Add(time.Second)
	r.Finalize()

	if r.StartedAt.Location() != time.UTC || r.FinishedAt.Location() != time.UTC {
		t.Fatalf("Finalize 后时间必须是 UTC")
	}

	order := make([]string, 0, len(r.Items))
	for _, it := range r.Items {
		order = append(order, it.Movie+"/"+it.Doc)
	}
	want := "100/1,100/5,100/9,200/2"
	if got := strings.Join(order, ","); got != want {
		t.Fatalf("排序不稳定：期望 %s，实际 %s", want, got)
	}

	if r.Summary.Extracted != 2 || r.Summary.Skipped != 1 || r.Summary.Failed != 1 {
		t.Fatalf("summary 不符合预期：%+v", r.Summary)
	}
	if r.Summary.Lines != 10 {
		t.Fatalf("期望 lines=10，实际 %d", r.Summary.Lines)
	}
}

func TestSplitDocPath(t *testing.T) {
	cases := []struct {
		in    string
		movie string
		doc   string
		ok    bool
	}{
		{"raw/en/2001/tt0000123/456.xml", "tt0000123", "456", true},
		{"2001/123456/789.xml", "123456", "789", true},
		{"123/456.xml", "123", "456", true},
		{"456.xml", "", "", false},
		{"raw/en/2001/tt0000123/456.txt", "", "", false},
		{"raw/en/2001/a-b/456.xml", "", "", false},
	}
	for _, c := range cases {
		m, d, ok := SplitDocPath(c.in)
		if ok != c.ok || string(m) != c.movie || string(d) != c.doc {
			t.Fatalf("SplitDocPath(%q) = (%q, %q, %v)，期望 (%q, %q, %v)",
				c.in, m, d, ok, c.movie, c.doc, c.ok)
		}
	}
}

func TestInspect_ComputedOnce(t *testing.T) {
	v := &DocumentVersion{Movie: "100", Doc: "1", Path: "2001/100/1.xml"}
	calls := 0
	f := func() Inspection {
		calls++
		return Inspection{Title: "Movie (2001)", Class: Classification{Original: true, Cased: true}}
	}
	a := v.Inspect(f)
	b := v.Inspect(f)
	if calls != 1 {
		t.Fatalf("Inspect 必须只计算一次，实际 %d 次", calls)
	}
	if a != b || a.Title != "Movie (2001)" {
		t.Fatalf("缓存结果不一致：%+v vs %+v", a, b)
	}
}
