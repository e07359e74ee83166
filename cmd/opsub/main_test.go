package main

import (
	"testing"

	"github.com/John-Robertt/opsub/internal/config"
)

func TestParsePipelineArgs(t *testing.T) {
	cli, err := parsePipelineArgs([]string{
		"corpus/en.zip", "--dedup", "--distinct-title=false", "--sample-size=5", "--min-year", "1990",
	}, false)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if cli.Path != "corpus/en.zip" {
		t.Fatalf("path 不符：%q", cli.Path)
	}
	if !cli.Deduplicate || !cli.DeduplicateSet {
		t.Fatalf("--dedup 未生效：%+v", cli)
	}
	if cli.DistinctTitle || !cli.DistinctTitleSet {
		t.Fatalf("--distinct-title=false 必须记录为“显式 false”：%+v", cli)
	}
	if cli.SampleSize != 5 || cli.MinYear != 1990 {
		t.Fatalf("数值参数不符：%+v", cli)
	}
}

func TestParsePipelineArgs_Errors(t *testing.T) {
	cases := [][]string{
		{"--unknown"},
		{"--sample-size", "abc"},
		{"--dedup=maybe"},
		{"a", "b"},
		{"--min-year"},
	}
	for _, args := range cases {
		if _, err := parsePipelineArgs(args, true); err == nil {
			t.Fatalf("参数 %v 必须报错", args)
		}
	}
}

func TestParsePipelineArgs_OutOnlyForExtract(t *testing.T) {
	if _, err := parsePipelineArgs([]string{"--out", "x"}, false); err == nil {
		t.Fatalf("stream 模式必须拒绝 --out")
	}
	cli, err := parsePipelineArgs([]string{"--out=x"}, true)
	if err != nil || !cli.OutSet || cli.Out != "x" {
		t.Fatalf("extract 模式必须接受 --out：%+v err=%v", cli, err)
	}
}

func TestBuildSource(t *testing.T) {
	if lang := buildSourceLang(t, "/data/pt_br.zip"); lang != "pt_br" {
		t.Fatalf(".zip 路径的语言标签不符：%q", lang)
	}
	if lang := buildSourceLang(t, "/data/corpus/en"); lang != "en" {
		t.Fatalf("目录路径的语言标签不符：%q", lang)
	}
}

func buildSourceLang(t *testing.T, path string) string {
	t.Helper()
	src := buildSource(config.EffectiveConfig{Path: path})
	return src.Language()
}
