package domain

import "sync"

// Classification 是分类器对单个文档版本的判定结果。
type Classification struct {
	// Original 表示文档是否为原始语言（非翻译）。缺少任何翻译标记时默认为 true。
	Original bool
	// Cased 表示文档是否保留了自然大小写。零行文档保守地判为 false。
	Cased bool
}

// Inspection 是首次检视文档时一次性得到的全部信息：
// 上传者记录的原始标题 + 分类结果。
type Inspection struct {
	Title string
	Class Classification
}

// DocumentVersion 是 MovieGroup 内的一次独立上传。
//
// 不变量：
// - Movie/Doc/Path 在构造后只读
// - Inspection 只计算一次（sync.Once 保护），此后不再变更
type DocumentVersion struct {
	Movie MovieID
	Doc   DocID
	// Path 是 Document Source 内的文档路径（slash 分隔），用于 Open。
	Path string

	once sync.Once
	insp Inspection
	done bool
}

// Inspect 返回缓存的检视结果；首次调用时执行 f 并缓存。
// f 不允许失败：分类器对退化输入（零行、缺元数据）有保守默认值。
func (v *DocumentVersion) Inspect(f func() Inspection) Inspection {
	v.once.Do(func() {
		v.insp = f()
		v.done = true
	})
	return v.insp
}

// Inspected 返回已缓存的检视结果；尚未检视过时 ok=false（不触发计算）。
func (v *DocumentVersion) Inspected() (Inspection, bool) {
	return v.insp, v.done
}

// MovieGroup 聚合同一部影片的全部上传版本（保持枚举顺序）。
// 不变量：组内所有版本的 Movie 与组的 Movie 一致。
type MovieGroup struct {
	Movie    MovieID
	Versions []*DocumentVersion
}
