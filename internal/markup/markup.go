package markup

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/opsub/internal/domain"
)

// 字幕文档存储为按词标注的 token markup：<document> 根元素下是一串
// <s>（句子），句子里要么是 <w> token 序列，要么是裸文本。
//
// 语料里存在大量截断/嵌套错误的上传，因此解析必须是容错的：
// goquery（net/html）和 lxml 的 recover 模式一样，坏结构只会丢局部
// 内容，不会让整个文档失败。“彻底不可解析”只有两种情况：读不出字节，
// 或者压根找不到 <document> 根元素。

// ParseError 表示单个文档不可解析（体损坏或缺少预期结构）。
// 调用方（Pipeline Driver）把它当作“跳过该文档、run 继续”的信号。
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("解析 %q 失败：%v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Meta 是从文档 <meta> 块提取的元数据（字段缺失为零值，不报错）。
type Meta struct {
	// Title 是上传者记录的原始标题（已做空白规范化）。
	Title string
	// Language 是文档自带的语言标签（例如 "pt_br"）。
	Language string
	// Original 是原始语言名（取逗号分隔的第一项，例如 "German"）。
	Original string
	// MachineTranslated 表示文档带有机器翻译标记。
	MachineTranslated bool
}

// Document 是一个已解析的字幕文档。持有解析树；Lines 每次都从树上
// 重算，因此产出的行序列是可重复消费的。
type Document struct {
	path string
	doc  *goquery.Document
}

// Parse 从 r 读取并解析一个文档。
//
// - 读失败或 html 解析失败：*ParseError
// - 解析成功但没有 <document> 根元素：*ParseError（token 结构不符合预期 schema）
func Parse(r io.Reader, path string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if doc.Find("document").Length() == 0 {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("缺少 document 根元素")}
	}
	return &Document{path: path, doc: doc}, nil
}

// Path 返回文档在 Document Source 内的路径。
func (d *Document) Path() string { return d.path }

// Lines 按文档顺序重建全部字幕行。
//
// 重建规则：
// - 句内 token 之间插入单个空格
// - 右侧 token 带 attach="left"，或左侧 token 带 attach="right" 时不插空格
// - 重建结果为空/纯空白的句子直接丢弃
// - Pos 在重建时按保留下来的行从 0 开始编号
func (d *Document) Lines() []domain.SubtitleLine {
	lines := make([]domain.SubtitleLine, 0, 64)
	d.doc.Find("document s").Each(func(_ int, s *goquery.Selection) {
		text := reconstruct(s)
		if text == "" {
			return
		}
		lines = append(lines, domain.SubtitleLine{Pos: len(lines), Text: text})
	})
	return lines
}

// Meta 提取文档元数据。注意 <meta> 与 <source> 在 HTML 里是 void 元素，
// 解析后其子元素会被提升为兄弟节点，因此这里只按元素名定位、不依赖
// 嵌套层级。
func (d *Document) Meta() Meta {
	var m Meta

	m.Title = normSpace(d.doc.Find("title").First().Text())
	m.Language = strings.TrimSpace(d.doc.Find("language").First().Text())

	if orig := strings.TrimSpace(d.doc.Find("original").First().Text()); orig != "" {
		// OPUS 的 original 可能是逗号分隔的多语言列表：取第一项。
		m.Original = strings.TrimSpace(strings.SplitN(orig, ",", 2)[0])
	}

	switch strings.ToLower(strings.TrimSpace(d.doc.Find("machine_translated").First().Text())) {
	case "1", "true", "yes":
		m.MachineTranslated = true
	}

	return m
}

func reconstruct(s *goquery.Selection) string {
	tokens := s.Find("w")
	if tokens.Length() == 0 {
		// 未分词的句子：直接取文本并做空白规范化。
		return normSpace(s.Text())
	}

	var b strings.Builder
	prevAttachRight := false
	wrote := false
	tokens.Each(func(_ int, w *goquery.Selection) {
		text := normSpace(w.Text())
		if text == "" {
			return
		}
		attach, _ := w.Attr("attach")
		if wrote && attach != "left" && !prevAttachRight {
			b.WriteByte(' ')
		}
		b.WriteString(text)
		prevAttachRight = attach == "right"
		wrote = true
	})
	return b.String()
}

// normSpace 把任意空白序列（含换行）压成单个空格，并去掉首尾空白。
func normSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
