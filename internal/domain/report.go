package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusExtracted = "extracted"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

const (
	// ErrCodeParseFailed：文档体损坏或不含可识别的字幕结构；跳过该文档，run 继续。
	ErrCodeParseFailed = "parse_failed"
	// ErrCodeSourceUnavailable：Document Source 无法枚举或打开路径；对 run 致命。
	ErrCodeSourceUnavailable = "source_unavailable"
	// ErrCodeIOFailed：文件模式下写出 .txt 失败（单文档失败，run 继续）。
	ErrCodeIOFailed = "io_failed"

	// 以下是 skipped 条目的原因码（按选择策略固定顺序产生）。
	ErrCodeFilteredOriginal = "filtered_original"
	ErrCodeFilteredCased    = "filtered_cased"
	ErrCodeFilteredTitle    = "filtered_title"
)

const (
	ErrCodeConfigNotFound    = "config_not_found"
	ErrCodeConfigInvalid     = "config_invalid"
	ErrCodeConfigMissingPath = "config_missing_path"
)

// ExtractReport 是对外稳定输出（stdout JSON / 人读摘要）的结构。
// stream 与 file 两种 sink 共享同一份 report 语义。
type ExtractReport struct {
	Source   string `json:"source"`
	Language string `json:"language"`
	Mode     string `json:"mode"` // "stream" | "files"

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []DocResult   `json:"items"`
}

type ReportSummary struct {
	Extracted int `json:"extracted"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	// Lines 是所有 extracted 文档实际发出（去重后）的行数总和。
	Lines int `json:"lines"`
}

// DocResult 是单个文档版本的处理结果。
//
// skipped 条目的 ErrorCode 填过滤原因码（filtered_*），这使得
// “为什么这份上传没进语料”可以直接从 report 回答。
type DocResult struct {
	Movie string `json:"movie"`
	Doc   string `json:"doc"`
	Title string `json:"title,omitempty"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`

	// Lines 是该文档去重后实际发出的行数（skipped/failed 时为 0）。
	Lines int `json:"lines"`
	// Out 是文件模式下写出的相对路径（stream 模式为空）。
	Out string `json:"out,omitempty"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 (movie, doc) 字典序
// 3) summary 由 items 计算得出
func (r *ExtractReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a, b := r.Items[i], r.Items[j]
		if a.Movie != b.Movie {
			return a.Movie < b.Movie
		}
		return a.Doc < b.Doc
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusExtracted:
			s.Extracted++
			s.Lines += it.Lines
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r ExtractReport) MarshalJSON() ([]byte, error) {
	type Alias ExtractReport
	return json.Marshal(Alias(r))
}
