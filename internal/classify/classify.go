package classify

import (
	"unicode"

	"github.com/John-Robertt/opsub/internal/domain"
	"github.com/John-Robertt/opsub/internal/langtag"
	"github.com/John-Robertt/opsub/internal/markup"
)

// DefaultSampleSize 是大小写判定默认采样的行数上限。
const DefaultSampleSize = 10

// Inspect 对一个已解析的文档做一次性检视：提取原始标题，并给出
// {Original, Cased} 分类。
//
// 约束：分类永不报错。退化输入的保守默认：
// - 元数据缺失/不可解析 => Original=true（没有证据就不判翻译）
// - 零行文档 => Cased=false（cased_only 下保守排除）
//
// archiveLang 是归档声明的语言标签；sampleSize<=0 时用 DefaultSampleSize。
func Inspect(d *markup.Document, archiveLang string, sampleSize int) domain.Inspection {
	meta := d.Meta()
	return domain.Inspection{
		Title: meta.Title,
		Class: domain.Classification{
			Original: isOriginal(meta, archiveLang),
			Cased:    isCased(d.Lines(), sampleSize),
		},
	}
}

// Degraded 是检视阶段文档不可解析时的保守结果：不判翻译（缺证据），
// 判 uncased（零可提取行）。文档随后在重建阶段照常报 parse_failed。
func Degraded() domain.Inspection {
	return domain.Inspection{Class: domain.Classification{Original: true, Cased: false}}
}

// isOriginal 判定文档是否为原始语言。判“翻译”需要确凿标记之一：
// 1) machine_translated 元数据为真
// 2) 文档 language 标签解析出与归档不同的基础语言
// 3) original 元数据（语言名）解析出与归档不同的基础语言
func isOriginal(meta markup.Meta, archiveLang string) bool {
	if meta.MachineTranslated {
		return false
	}
	if langtag.DifferentBase(meta.Language, archiveLang) {
		return false
	}
	if langtag.DifferentBase(meta.Original, archiveLang) {
		return false
	}
	return true
}

// isCased 采样最多 sampleSize 行；任一采样行同时含大写与小写字母即判 cased。
// 行在重建阶段已去空，这里直接取前 N 行。
func isCased(lines []domain.SubtitleLine, sampleSize int) bool {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	if len(lines) > sampleSize {
		lines = lines[:sampleSize]
	}
	for _, l := range lines {
		if mixedCase(l.Text) {
			return true
		}
	}
	return false
}

func mixedCase(s string) bool {
	var upper, lower bool
	for _, r := range s {
		if unicode.IsUpper(r) {
			upper = true
		} else if unicode.IsLower(r) {
			lower = true
		}
		if upper && lower {
			return true
		}
	}
	return false
}
