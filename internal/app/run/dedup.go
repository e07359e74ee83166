package run

import (
	"strings"

	"golang.org/x/text/cases"
)

// dedup 是整个 run 范围的行去重过滤器：同一句字幕（规范化后）跨文档、
// 跨影片也只发出一次——片尾署名这类样板行在语料里会重复上万次。
//
// seen 集合由 Pipeline Driver（Stream）独占持有并随 run 丢弃，
// 不是全局状态。
type dedup struct {
	seen map[string]struct{}
}

func newDedup() *dedup {
	return &dedup{seen: make(map[string]struct{}, 4096)}
}

// suppressed 判断该行是否已发出过；未见过则记录并返回 false。
func (d *dedup) suppressed(text string) bool {
	key := NormalizeLine(text)
	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

// NormalizeLine 是全局去重的规范化：Unicode case fold + 行内空白折叠
// 为单空格 + 去首尾空白。只用于比较，发出的行保持原文。
func NormalizeLine(s string) string {
	return strings.Join(strings.Fields(cases.Fold().String(s)), " ")
}
