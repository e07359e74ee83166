package domain

// SubtitleLine 是重建出的一行字幕文本（文档内有序，Pos 从 0 开始）。
// 产出后不可变；空白行在重建阶段就被丢弃，不会出现在序列里。
type SubtitleLine struct {
	Pos  int
	Text string
}

// Record 是管道的最终产出单元：(行文本, movie id, doc id)。
// 纯值对象，核心自身不持久化它。
type Record struct {
	Text  string
	Movie MovieID
	Doc   DocID
}
