package markup

import (
	"errors"
	"strings"
	"testing"
)

const tokenDoc = `<?xml version="1.0" encoding="utf-8"?>
<document id="456">
  <meta>
    <subtitle>
      <language>pt_br</language>
      <machine_translated>1</machine_translated>
    </subtitle>
    <source>
      <title> Movie   (2001) </title>
      <original>German, English</original>
    </source>
  </meta>
  <s id="1">
    <time id="T1S" value="00:00:01,000" />
    <w id="1.1">Hello</w>
    <w id="1.2" attach="left">,</w>
    <w id="1.3">world</w>
  </s>
  <s id="2">
    <w id="2.1">   </w>
  </s>
  <s id="3">
    <w id="3.1" attach="right">-</w>
    <w id="3.2">Quoi</w>
    <w id="3.3" attach="left">?</w>
  </s>
  <s id="4">  Plain   text
  sentence  </s>
</document>`

func TestParse_TokenAttachment(t *testing.T) {
	d, err := Parse(strings.NewReader(tokenDoc), "2001/123/456.xml")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	lines := d.Lines()
	if len(lines) != 3 {
		t.Fatalf("期望 3 行（空白句必须丢弃），实际 %d：%+v", len(lines), lines)
	}
	if lines[0].Text != "Hello, world" {
		t.Fatalf("attach=left 规则错误：%q", lines[0].Text)
	}
	if lines[1].Text != "-Quoi?" {
		t.Fatalf("attach=right 规则错误：%q", lines[1].Text)
	}
	if lines[2].Text != "Plain text sentence" {
		t.Fatalf("裸文本句子空白规范化错误：%q", lines[2].Text)
	}
	for i, l := range lines {
		if l.Pos != i {
			t.Fatalf("Pos 必须按保留行从 0 编号：%+v", lines)
		}
	}
}

func TestParse_LinesRestartable(t *testing.T) {
	d, err := Parse(strings.NewReader(tokenDoc), "x.xml")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	a := d.Lines()
	b := d.Lines()
	if len(a) != len(b) {
		t.Fatalf("重复消费必须得到相同序列：%d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("第 %d 行不一致：%+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestParse_Meta(t *testing.T) {
	d, err := Parse(strings.NewReader(tokenDoc), "x.xml")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	m := d.Meta()
	if m.Title != "Movie (2001)" {
		t.Fatalf("title 提取错误：%q", m.Title)
	}
	if m.Language != "pt_br" {
		t.Fatalf("language 提取错误：%q", m.Language)
	}
	if m.Original != "German" {
		t.Fatalf("original 必须取逗号分隔的第一项：%q", m.Original)
	}
	if !m.MachineTranslated {
		t.Fatalf("machine_translated=1 必须判为 true")
	}
}

func TestParse_MissingMetaIsZero(t *testing.T) {
	d, err := Parse(strings.NewReader(`<document><s><w>Hi</w></s></document>`), "x.xml")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	m := d.Meta()
	if m.Title != "" || m.Language != "" || m.Original != "" || m.MachineTranslated {
		t.Fatalf("缺失元数据必须是零值：%+v", m)
	}
}

func TestParse_NoDocumentRoot(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"not":"markup"}`), "2001/123/456.xml")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("期望 *ParseError，实际 %v", err)
	}
	if pe.Path != "2001/123/456.xml" {
		t.Fatalf("ParseError 必须带上文档路径：%+v", pe)
	}
}

func TestParse_EmptyDocumentNoLines(t *testing.T) {
	d, err := Parse(strings.NewReader(`<document id="1"></document>`), "x.xml")
	if err != nil {
		t.Fatalf("空 document 不是解析错误：%v", err)
	}
	if got := d.Lines(); len(got) != 0 {
		t.Fatalf("期望 0 行，实际 %+v", got)
	}
}
