package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/opsub/internal/app/run"
	"github.com/John-Robertt/opsub/internal/config"
	"github.com/John-Robertt/opsub/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是一个“简洁版”的交互终端进度输出。
//
// 设计目标：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - keepalive：长时间无文档完成时也会定期输出一行，降低等待焦虑
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	total int
	done  int
	ok    int
	fail  int
	skip  int
	lines int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	fmt.Fprintf(p.w, "[%s] opsub %s\n", now.Format("15:04:05"), eff.Mode())
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  path: %s\n", eff.Path)
	if eff.Out != "" {
		fmt.Fprintf(p.w, "  out: %s\n", eff.Out)
	}
	fmt.Fprintf(p.w, "  filters: %s\n", formatPolicy(eff.Policy))
	if eff.Policy.CasedOnly {
		fmt.Fprintf(p.w, "  sample_size: %d\n", eff.SampleSize)
	}
	if eff.MinYear > 0 || eff.MaxYear > 0 {
		fmt.Fprintf(p.w, "  years: %s\n", formatYears(eff.MinYear, eff.MaxYear))
	}
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
	p.mu.Unlock()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "enumerate":
		p.total = intField(fields, "versions")
		fmt.Fprintf(p.w, "枚举: groups=%d versions=%d (%s)\n\n",
			intField(fields, "groups"), p.total, formatShortDuration(dur),
		)
		if p.total > 0 && !p.tickerStarted {
			p.startTickerLocked()
		}
	default:
		// 兜底：未知阶段也不要静默（便于调试/演进）。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnDocDone(idx, total int, res domain.DocResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// idx/total 由 run 层给出；这里同时维护自己的计数，供 keepalive 使用。
	p.done = idx
	p.total = total

	status := "?"
	switch res.Status {
	case domain.StatusExtracted:
		p.ok++
		p.lines += res.Lines
		status = "OK"
	case domain.StatusSkipped:
		p.skip++
		status = "SKIP"
	case domain.StatusFailed:
		p.fail++
		status = "FAIL"
	}

	key := res.Movie + "/" + res.Doc
	switch res.Status {
	case domain.StatusFailed:
		fmt.Fprintf(p.w, "[%d/%d] %s %s %s: %s (%s)\n",
			idx, total, key, status, res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	case domain.StatusSkipped:
		fmt.Fprintf(p.w, "[%d/%d] %s %s %s\n", idx, total, key, status, res.ErrorCode)
	default:
		if res.Out != "" {
			fmt.Fprintf(p.w, "[%d/%d] %s %s lines=%d -> %s (%s)\n",
				idx, total, key, status, res.Lines, res.Out, formatShortDuration(dur),
			)
		} else {
			fmt.Fprintf(p.w, "[%d/%d] %s %s lines=%d (%s)\n",
				idx, total, key, status, res.Lines, formatShortDuration(dur),
			)
		}
	}

	p.lastPrinted = time.Now()

	// 最后一条完成：停止 ticker，避免在结束打印后又冒出 keepalive。
	if p.tickerStarted && p.done >= p.total {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressUI) OnProgress(done, total, extracted, skipped, failed int, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "进度: done=%d/%d ok=%d fail=%d skip=%d elapsed=%s\n",
		done, total, extracted, failed, skipped, formatElapsed(elapsed),
	)
	p.lastPrinted = time.Now()
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				// 已完成：安全退出（OnDocDone 会 close stopCh，但这里也做兜底）。
				if p.total > 0 && p.done >= p.total {
					p.mu.Unlock()
					return
				}

				if p.total > 0 && time.Since(p.lastPrinted) > threshold {
					elapsed := time.Since(p.startedAt)
					fmt.Fprintf(p.w, "进度: done=%d/%d ok=%d fail=%d skip=%d lines=%d elapsed=%s\n",
						p.done, p.total, p.ok, p.fail, p.skip, p.lines, formatElapsed(elapsed),
					)
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-p.stopCh:
				return
			}
		}
	}()
}

// newFetchProgress 返回下载进度回调：限频输出，避免刷屏。
func newFetchProgress(w io.Writer) func(written, total int64) {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func(written, total int64) {
		mu.Lock()
		defer mu.Unlock()
		if time.Since(last) < time.Second && written != total {
			return
		}
		last = time.Now()
		if total > 0 {
			fmt.Fprintf(w, "\r下载: %s / %s (%d%%)", formatBytes(written), formatBytes(total), written*100/total)
		} else {
			fmt.Fprintf(w, "\r下载: %s", formatBytes(written))
		}
	}
}

func formatPolicy(pol domain.SelectionPolicy) string {
	var on []string
	if pol.DistinctTitle {
		on = append(on, "distinct_title")
	}
	if pol.OriginalOnly {
		on = append(on, "original_only")
	}
	if pol.CasedOnly {
		on = append(on, "cased_only")
	}
	if pol.Deduplicate {
		on = append(on, "deduplicate")
	}
	if len(on) == 0 {
		return "off"
	}
	return strings.Join(on, ",")
}

func formatYears(min, max int) string {
	switch {
	case min > 0 && max > 0:
		return fmt.Sprintf("%d..%d", min, max)
	case min > 0:
		return fmt.Sprintf("%d..", min)
	default:
		return fmt.Sprintf("..%d", max)
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		return int(x)
	default:
		return 0
	}
}
