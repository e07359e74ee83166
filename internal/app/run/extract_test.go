package run

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/opsub/internal/config"
	"github.com/John-Robertt/opsub/internal/domain"
	"github.com/John-Robertt/opsub/internal/source"
)

// writeCorpus 在磁盘上搭一个最小的解包语料目录，返回其根。
func writeCorpus(t *testing.T, docs map[string]string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "en")
	for rel, body := range docs {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("建目录失败：%v", err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("写文档失败：%v", err)
		}
	}
	return root
}

func TestExtract_WritesOneFilePerDocument(t *testing.T) {
	root := writeCorpus(t, map[string]string{
		"2001/100/1.xml": mkDoc("A", "", "First line", "Second line"),
		"2001/100/2.xml": mkDoc("B", "", "Other version"),
	})
	out := t.TempDir()
	eff := config.EffectiveConfig{Path: root, Out: out, SampleSize: 10}

	rep, err := Extract(context.Background(), source.NewDir(root, source.YearWindow{}), eff, nil)
	if err != nil {
		t.Fatalf("不期望致命错误：%v", err)
	}
	if rep.Mode != "files" || rep.Summary.Extracted != 2 || rep.Summary.Lines != 3 {
		t.Fatalf("report 不符：%+v", rep.Summary)
	}

	body, rerr := os.ReadFile(filepath.Join(out, "100-1.txt"))
	if rerr != nil {
		t.Fatalf("期望文件 100-1.txt：%v", rerr)
	}
	if string(body) != "First line\nSecond line\n" {
		t.Fatalf("文件内容不符：%q", body)
	}
	if rep.Items[0].Out != "100-1.txt" || rep.Items[1].Out != "100-2.txt" {
		t.Fatalf("条目必须带写出路径：%+v", rep.Items)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	root := writeCorpus(t, map[string]string{
		"2001/100/1.xml": mkDoc("A", "", "Stable line"),
	})
	out := t.TempDir()
	eff := config.EffectiveConfig{Path: root, Out: out, SampleSize: 10}

	for i := 0; i < 2; i++ {
		rep, err := Extract(context.Background(), source.NewDir(root, source.YearWindow{}), eff, nil)
		if err != nil {
			t.Fatalf("第 %d 次运行失败：%v", i+1, err)
		}
		if rep.Summary.Extracted != 1 || rep.Summary.Failed != 0 {
			t.Fatalf("第 %d 次运行 summary 不符：%+v", i+1, rep.Summary)
		}
	}
	body, err := os.ReadFile(filepath.Join(out, "100-1.txt"))
	if err != nil || string(body) != "Stable line\n" {
		t.Fatalf("重复运行后内容必须一致：%q err=%v", body, err)
	}
}

func TestExtract_WriteFailureIsPerDocument(t *testing.T) {
	root := writeCorpus(t, map[string]string{
		"2001/100/1.xml": mkDoc("A", "", "Line one"),
		"2001/200/2.xml": mkDoc("B", "", "Line two"),
	})
	// out 指向一个普通文件：MkdirAll 失败，每个文档都写不出去。
	outParent := t.TempDir()
	out := filepath.Join(outParent, "occupied")
	if err := os.WriteFile(out, []byte("x"), 0o644); err != nil {
		t.Fatalf("准备占位文件失败：%v", err)
	}
	eff := config.EffectiveConfig{Path: root, Out: out, SampleSize: 10}

	rep, err := Extract(context.Background(), source.NewDir(root, source.YearWindow{}), eff, nil)
	if err != nil {
		t.Fatalf("写盘失败是单文档错误，不致命：%v", err)
	}
	if rep.Summary.Failed != 2 || rep.Summary.Extracted != 0 {
		t.Fatalf("summary 不符：%+v", rep.Summary)
	}
	for _, it := range rep.Items {
		if it.ErrorCode != domain.ErrCodeIOFailed || it.Lines != 0 {
			t.Fatalf("失败条目必须是 io_failed 且行数归零：%+v", it)
		}
	}
}

// 两种 sink 的等价性：同一语料、同一策略，stream 发出的行数必须与
// file 模式写出的行数一致。
func TestExtract_MatchesStreamLineCount(t *testing.T) {
	docs := map[string]string{
		"2001/100/1.xml": mkDoc("A", "", "Shared credit", "Alpha"),
		"2001/200/2.xml": mkDoc("B", "", "Shared credit", "Beta"),
	}
	pol := domain.SelectionPolicy{Deduplicate: true}

	streamRoot := writeCorpus(t, docs)
	s := NewStream(context.Background(), source.NewDir(streamRoot, source.YearWindow{}),
		config.EffectiveConfig{Path: streamRoot, SampleSize: 10, Policy: pol}, nil)
	streamed := len(drain(t, s))
	if s.Err() != nil {
		t.Fatalf("stream 运行失败：%v", s.Err())
	}

	fileRoot := writeCorpus(t, docs)
	out := t.TempDir()
	rep, err := Extract(context.Background(), source.NewDir(fileRoot, source.YearWindow{}),
		config.EffectiveConfig{Path: fileRoot, Out: out, SampleSize: 10, Policy: pol}, nil)
	if err != nil {
		t.Fatalf("file 模式运行失败：%v", err)
	}

	if streamed != rep.Summary.Lines {
		t.Fatalf("两种 sink 的行数必须一致：stream=%d files=%d", streamed, rep.Summary.Lines)
	}
	if streamed != 3 {
		t.Fatalf("去重后应只有 3 行：%d", streamed)
	}
}
