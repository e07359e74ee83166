package run

import (
	"time"

	"github.com/John-Robertt/opsub/internal/config"
	"github.com/John-Robertt/opsub/internal/domain"
)

// Observer 用于把“运行进度/阶段/文档结果”从核心管道流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的数据契约：
//   stream 模式的 TSV 记录与 extract 模式的 report JSON）。
// - 管道是单线程协作式 pull，事件天然串行；Observer 实现仍应并发
//   安全，因为 CLI 可能从自己的 ticker goroutine 触发 keepalive。
type Observer interface {
	// OnStart 在管道构造时调用（应尽量早，保证用户 1 秒内看到输出）。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束时调用（用于打印阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnDocDone 在某个文档版本处理完成（extracted/skipped/failed）时调用。
	OnDocDone(idx, total int, res domain.DocResult, dur time.Duration)
	// OnProgress 用于 keepalive（通常由 CLI 自己 ticker 触发；run 层不强制调用）。
	OnProgress(done, total, extracted, skipped, failed int, elapsed time.Duration)
}
