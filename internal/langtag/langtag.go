package langtag

import (
	"strings"

	"golang.org/x/text/language"
)

// 这个包把“语言标签/语言名 → 基础语言”的归一化集中在一处。
//
// 输入来源有两类，且格式都不可信：
// - 归档标签与文档 language 元数据：BCP47 风格，但 OPUS 用 '_' 做分隔
//   （例如 "pt_br"、"ze_en"）
// - 文档 original 元数据：英文语言名（例如 "German"、"Japanese"）
//
// 约束：要么归一化出基础语言，要么明确失败；判定“翻译”的一侧解析
// 失败时，上层必须按“非翻译”处理（保守默认）。

// nameToCode 覆盖 OPUS OpenSubtitles 语料中 original 字段常见的英文语言名。
// 不追求完备：命不中就按“无法解析”处理，不会误判。
var nameToCode = map[string]string{
	"albanian":   "sq",
	"arabic":     "ar",
	"basque":     "eu",
	"bengali":    "bn",
	"bosnian":    "bs",
	"bulgarian":  "bg",
	"catalan":    "ca",
	"chinese":    "zh",
	"croatian":   "hr",
	"czech":      "cs",
	"danish":     "da",
	"dutch":      "nl",
	"english":    "en",
	"estonian":   "et",
	"finnish":    "fi",
	"french":     "fr",
	"galician":   "gl",
	"georgian":   "ka",
	"german":     "de",
	"greek":      "el",
	"hebrew":     "he",
	"hindi":      "hi",
	"hungarian":  "hu",
	"icelandic":  "is",
	"indonesian": "id",
	"italian":    "it",
	"japanese":   "ja",
	"korean":     "ko",
	"latvian":    "lv",
	"lithuanian": "lt",
	"macedonian": "mk",
	"malay":      "ms",
	"norwegian":  "no",
	"persian":    "fa",
	"polish":     "pl",
	"portuguese": "pt",
	"romanian":   "ro",
	"russian":    "ru",
	"serbian":    "sr",
	"slovak":     "sk",
	"slovenian":  "sl",
	"spanish":    "es",
	"swedish":    "sv",
	"tagalog":    "tl",
	"tamil":      "ta",
	"telugu":     "te",
	"thai":       "th",
	"turkish":    "tr",
	"ukrainian":  "uk",
	"vietnamese": "vi",
}

// Base 把语言标签或英文语言名归一化为基础语言代码（例如 "pt_br" → "pt"，
// "German" → "de"）。宏语言并入宏标签（例如 "cmn" → "zh"）。
func Base(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if code, ok := nameToCode[strings.ToLower(s)]; ok {
		s = code
	}
	// OPUS 标签用 '_'；language.Parse 只认 '-'。
	s = strings.ReplaceAll(s, "_", "-")

	tag, err := language.Parse(s)
	if err != nil {
		return "", false
	}
	if t, err := language.Macro.Canonicalize(tag); err == nil {
		tag = t
	}
	b, conf := tag.Base()
	if conf == language.No {
		return "", false
	}
	return b.String(), true
}

// DifferentBase 判断 a 与 b 是否解析为“不同的基础语言”。
//
// 注意方向性：任一侧解析失败都返回 false——缺失/不可解析的标记
// 不构成“翻译”的证据。
func DifferentBase(a, b string) bool {
	ba, oka := Base(a)
	bb, okb := Base(b)
	return oka && okb && ba != bb
}
