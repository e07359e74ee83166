package app

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/John-Robertt/opsub/internal/classify"
	"github.com/John-Robertt/opsub/internal/domain"
	"github.com/John-Robertt/opsub/internal/markup"
	"github.com/John-Robertt/opsub/internal/source"
)

// Dropped 记录被选择策略过滤掉的版本（含原因码），用于 report 的
// skipped 条目——“这份上传为什么没进语料”必须可以直接回答。
type Dropped struct {
	Version *domain.DocumentVersion
	// Code 是 domain.ErrCodeFiltered* 之一。
	Code string
}

// SelectVersions 对一个 MovieGroup 应用选择策略，返回保留的版本子集
// （保持原相对顺序）与被过滤的版本。
//
// 三个开关按固定顺序作为连续过滤器组合（结果确定且可解释）：
// 1) original_only 2) cased_only 3) distinct_title（组内按规范化标题
// 首见保留）。一个组被过滤空不是错误。
//
// 只有在策略需要时才检视文档（多一次解析不是免费的）；检视结果缓存在
// 版本对象上，此后只读。返回 error 仅当 Document Source 打不开路径
// （对 run 致命）。
func SelectVersions(ctx context.Context, src source.Source, g domain.MovieGroup, pol domain.SelectionPolicy, sampleSize int) (kept []*domain.DocumentVersion, dropped []Dropped, err error) {
	kept = make([]*domain.DocumentVersion, 0, len(g.Versions))
	if !pol.NeedsInspection() {
		kept = append(kept, g.Versions...)
		return kept, nil, nil
	}

	seenTitles := make(map[string]struct{}, len(g.Versions))
	for _, v := range g.Versions {
		insp, err := inspect(ctx, src, v, sampleSize)
		if err != nil {
			return nil, nil, err
		}

		if pol.OriginalOnly && !insp.Class.Original {
			dropped = append(dropped, Dropped{Version: v, Code: domain.ErrCodeFilteredOriginal})
			continue
		}
		if pol.CasedOnly && !insp.Class.Cased {
			dropped = append(dropped, Dropped{Version: v, Code: domain.ErrCodeFilteredCased})
			continue
		}
		if pol.DistinctTitle {
			// 空标题不构成重复证据：永远保留。
			if key := TitleKey(insp.Title); key != "" {
				if _, ok := seenTitles[key]; ok {
					dropped = append(dropped, Dropped{Version: v, Code: domain.ErrCodeFilteredTitle})
					continue
				}
				seenTitles[key] = struct{}{}
			}
		}
		kept = append(kept, v)
	}
	return kept, dropped, nil
}

// inspect 保证每个版本只检视一次（DocumentVersion 上的 write-once 缓存）。
// 文档体不可解析不算错误（保守分类，重建阶段会照常报 parse_failed）；
// 路径打不开则原样上抛（source 不可用，对 run 致命）。
func inspect(ctx context.Context, src source.Source, v *domain.DocumentVersion, sampleSize int) (domain.Inspection, error) {
	var openErr error
	insp := v.Inspect(func() domain.Inspection {
		rc, err := src.Open(ctx, v.Path)
		if err != nil {
			openErr = err
			return classify.Degraded()
		}
		defer rc.Close()

		d, err := markup.Parse(rc, v.Path)
		if err != nil {
			return classify.Degraded()
		}
		return classify.Inspect(d, src.Language(), sampleSize)
	})
	if openErr != nil {
		return domain.Inspection{}, openErr
	}
	return insp, nil
}

// TitleKey 把原始标题规范化为去重键：Unicode case fold + 去标点 +
// 空白折叠。返回空串表示“没有可比较的标题”。
func TitleKey(title string) string {
	folded := cases.Fold().String(title)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
			// 其余（标点/符号）直接丢弃
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
