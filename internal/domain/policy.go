package domain

// SelectionPolicy 是版本筛选与去重的四个独立开关（纯数据，无行为）。
// 全部默认 false，即“保留一切”。
type SelectionPolicy struct {
	// DistinctTitle 按规范化标题去重版本（组内保留最先出现的一个）。
	DistinctTitle bool
	// OriginalOnly 只保留原始语言（非翻译）的版本。
	OriginalOnly bool
	// CasedOnly 只保留保留自然大小写的版本。
	CasedOnly bool
	// Deduplicate 对整个 run 的输出行做全局去重（规范化后首次出现者胜）。
	Deduplicate bool
}

// NeedsInspection 判断该策略是否需要先检视文档（标题/语言/大小写）。
// 三个版本过滤开关都关闭时，选择器可以完全跳过检视（省一次解析）。
func (p SelectionPolicy) NeedsInspection() bool {
	return p.DistinctTitle || p.OriginalOnly || p.CasedOnly
}
