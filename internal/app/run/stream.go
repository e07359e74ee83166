package run

import (
	"context"
	"time"

	"github.com/John-Robertt/opsub/internal/app"
	"github.com/John-Robertt/opsub/internal/config"
	"github.com/John-Robertt/opsub/internal/domain"
	"github.com/John-Robertt/opsub/internal/markup"
	"github.com/John-Robertt/opsub/internal/source"
)

// Stream 是惰性的 pull 式管道：调用方按需取记录（Next），Stream 内部
// 按 组 → 版本 → 行 推进，文档在需要时才打开、解析，用完即关。
//
// 生命周期约束：
// - 单 goroutine 消费（Next/Err/Close/Report 不做并发保护）
// - 枚举/选择阶段错误是致命的：Next 返回 false，Err 给出原因
// - 单个文档解析失败不是致命的：记为 failed 条目，继续下一个文档
type Stream struct {
	ctx context.Context
	src source.Source
	eff config.EffectiveConfig
	obs Observer

	groups []domain.MovieGroup
	gi     int

	selected []*domain.DocumentVersion
	vi       int

	cur      *domain.DocumentVersion
	curTitle string
	lines    []domain.SubtitleLine
	li       int
	emitted  []string
	docStart time.Time

	dedup *dedup
	// docHook 在每个文档收尾时调用（extracted 条目 append 进 report
	// 之前）。file sink 在这里落盘，并可把条目改写为 io_failed。
	docHook func(res *domain.DocResult, lines []string)

	rep    domain.ExtractReport
	done   int
	total  int
	err    error
	closed bool
}

// NewStream 构造管道并立即完成枚举阶段（组列表必须先于第一条记录确定，
// 年份窗口也在这里生效）。枚举失败时 Stream 仍然可用：Next 立即返回
// false，Report 带上致命错误条目。
func NewStream(ctx context.Context, src source.Source, eff config.EffectiveConfig, obs Observer) *Stream {
	s := &Stream{
		ctx:   ctx,
		src:   src,
		eff:   eff,
		obs:   obs,
		dedup: newDedup(),
		rep: domain.ExtractReport{
			Source:    eff.Path,
			Language:  src.Language(),
			Mode:      eff.Mode(),
			StartedAt: time.Now(),
		},
	}
	if obs != nil {
		obs.OnStart(eff)
	}

	phaseStart := time.Now()
	groups, err := src.Groups(ctx)
	if err != nil {
		s.err = err
		return s
	}
	s.groups = groups
	for _, g := range groups {
		s.total += len(g.Versions)
	}
	if obs != nil {
		obs.OnPhaseDone("enumerate", map[string]any{
			"groups":   len(groups),
			"versions": s.total,
		}, time.Since(phaseStart))
	}
	return s
}

// Next 返回管道的下一条记录。返回 false 表示流结束——正常耗尽或遇到
// 致命错误（用 Err 区分）。
func (s *Stream) Next() (domain.Record, bool) {
	for {
		if s.err != nil || s.closed {
			return domain.Record{}, false
		}
		if s.cur == nil {
			if !s.advance() {
				return domain.Record{}, false
			}
		}
		for s.li < len(s.lines) {
			ln := s.lines[s.li]
			s.li++
			if s.eff.Policy.Deduplicate && s.dedup.suppressed(ln.Text) {
				continue
			}
			s.emitted = append(s.emitted, ln.Text)
			return domain.Record{Text: ln.Text, Movie: s.cur.Movie, Doc: s.cur.Doc}, true
		}
		s.finishDoc()
	}
}

// Err 返回致命错误（没有则为 nil）。单文档的 parse_failed/io_failed
// 不会出现在这里，它们只体现在 report 条目上。
func (s *Stream) Err() error { return s.err }

// Close 提前终止流。已发出的记录与已记录的条目保持有效。
func (s *Stream) Close() error {
	if s.cur != nil {
		// 半途而废的文档不计入 report（行数不完整，条目会撒谎）。
		s.cur, s.lines, s.emitted = nil, nil, nil
	}
	s.closed = true
	return nil
}

// Report 返回到目前为止的运行报告（已 Finalize）。流耗尽后调用得到
// 完整报告；致命错误时附加一个合成的 failed 条目说明原因。
func (s *Stream) Report() domain.ExtractReport {
	rep := s.rep
	rep.Items = append([]domain.DocResult(nil), s.rep.Items...)
	if s.err != nil {
		code := domain.ErrCodeIOFailed
		if source.IsUnavailable(s.err) {
			code = domain.ErrCodeSourceUnavailable
		}
		rep.Items = append(rep.Items, domain.DocResult{
			Status:    domain.StatusFailed,
			ErrorCode: code,
			ErrorMsg:  s.err.Error(),
		})
	}
	rep.FinishedAt = time.Now()
	rep.Finalize()
	return rep
}

// advance 推进到下一个可产出行的文档：必要时先做下一组的版本选择，
// 然后打开并解析当前版本。返回 false 表示没有更多文档或遇到致命错误。
func (s *Stream) advance() bool {
	for {
		if err := s.ctx.Err(); err != nil {
			s.err = err
			return false
		}
		for s.vi >= len(s.selected) {
			if s.gi >= len(s.groups) {
				return false
			}
			g := s.groups[s.gi]
			s.gi++
			kept, dropped, err := app.SelectVersions(s.ctx, s.src, g, s.eff.Policy, s.eff.SampleSize)
			if err != nil {
				s.err = err
				return false
			}
			for _, d := range dropped {
				s.skipDoc(d)
			}
			s.selected, s.vi = kept, 0
		}

		v := s.selected[s.vi]
		s.vi++
		s.docStart = time.Now()

		rc, err := s.src.Open(s.ctx, v.Path)
		if err != nil {
			s.err = err
			return false
		}
		d, perr := markup.Parse(rc, v.Path)
		cerr := rc.Close()
		if perr != nil {
			s.failDoc(v, perr)
			continue
		}
		if cerr != nil {
			s.err = &source.UnavailableError{Op: "close", Path: v.Path, Err: cerr}
			return false
		}

		s.cur = v
		s.curTitle = docTitle(v, d)
		s.lines = d.Lines()
		s.li = 0
		s.emitted = s.emitted[:0]
		return true
	}
}

// docTitle 优先用选择阶段缓存的检视结果；未检视过（宽松策略）时从
// 刚解析好的文档元数据取。
func docTitle(v *domain.DocumentVersion, d *markup.Document) string {
	if insp, ok := v.Inspected(); ok {
		return insp.Title
	}
	return d.Meta().Title
}

func (s *Stream) finishDoc() {
	res := domain.DocResult{
		Movie:  string(s.cur.Movie),
		Doc:    string(s.cur.Doc),
		Title:  s.curTitle,
		Status: domain.StatusExtracted,
		Lines:  len(s.emitted),
	}
	if s.docHook != nil {
		s.docHook(&res, s.emitted)
	}
	s.record(res, time.Since(s.docStart))
	s.cur, s.lines, s.emitted = nil, nil, nil
}

func (s *Stream) skipDoc(d app.Dropped) {
	title := ""
	if insp, ok := d.Version.Inspected(); ok {
		title = insp.Title
	}
	s.record(domain.DocResult{
		Movie:     string(d.Version.Movie),
		Doc:       string(d.Version.Doc),
		Title:     title,
		Status:    domain.StatusSkipped,
		ErrorCode: d.Code,
	}, 0)
}

func (s *Stream) failDoc(v *domain.DocumentVersion, err error) {
	s.record(domain.DocResult{
		Movie:     string(v.Movie),
		Doc:       string(v.Doc),
		Status:    domain.StatusFailed,
		ErrorCode: domain.ErrCodeParseFailed,
		ErrorMsg:  err.Error(),
	}, time.Since(s.docStart))
}

func (s *Stream) record(res domain.DocResult, dur time.Duration) {
	s.rep.Items = append(s.rep.Items, res)
	s.done++
	if s.obs != nil {
		s.obs.OnDocDone(s.done, s.total, res, dur)
	}
}
