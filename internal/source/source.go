package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/John-Robertt/opsub/internal/domain"
)

// Source 抽象“按影片分组的、可按路径读取的字幕文档集合”。
//
// 约束（两个适配器都必须满足，核心对物理存储不可知）：
// - Groups 返回稳定顺序（排序后路径的首见顺序；组内版本按路径字典序），
//   可重复调用（重新枚举）
// - Open 是 scoped read：返回的 ReadCloser 由调用方负责及时关闭
// - 枚举/打开失败 => *UnavailableError（对 run 致命）
type Source interface {
	// Language 返回归档声明的语言标签（例如 "en"、"pt_br"）。
	Language() string
	Groups(ctx context.Context) ([]domain.MovieGroup, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// UnavailableError 表示 Document Source 本身不可用（枚举失败/路径打不开）。
// 没有输入管道无法继续，必须原样上抛给调用方。
type UnavailableError struct {
	Op   string // "list" | "open"
	Path string
	Err  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("document source 不可用（%s %q）：%v", e.Op, e.Path, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable 判断 err 是否为 *UnavailableError。
func IsUnavailable(err error) bool {
	var e *UnavailableError
	return errors.As(err, &e)
}

// YearWindow 限定归档内路径 …/<year>/<movie>/<doc>.xml 的年份段。
// 两端为 0 表示不设界；只要设了任一界，年份为 "unknown"（或缺失/不可
// 解析）的条目就会被跳过。
type YearWindow struct {
	Min int
	Max int
}

func (w YearWindow) bounded() bool { return w.Min > 0 || w.Max > 0 }

// keep 判断 slash 路径的年份段是否落在窗口内。
func (w YearWindow) keep(p string) bool {
	if !w.bounded() {
		return true
	}
	segs := strings.Split(strings.TrimSuffix(p, ".xml"), "/")
	if len(segs) < 3 {
		return false
	}
	y, err := strconv.Atoi(segs[len(segs)-3])
	if err != nil {
		// "unknown" 等非数字年份：设界时一律跳过。
		return false
	}
	if w.Min > 0 && y < w.Min {
		return false
	}
	if w.Max > 0 && y > w.Max {
		return false
	}
	return true
}

// groupPaths 把一批文档路径聚合为稳定有序的 MovieGroup。
//
// - paths 先整体排序（不同平台/容器的枚举顺序不可信）
// - 不符合 …/<movie>/<doc>.xml 规则的路径静默跳过（容器里混有别的文件很常见）
// - 组按“排序后首次出现”的顺序排列；组内版本按路径字典序
//   （同一影片跨年份目录出现时仍并入同一组）
func groupPaths(paths []string, w YearWindow) []domain.MovieGroup {
	sort.Strings(paths)

	index := make(map[domain.MovieID]int, 128)
	groups := make([]domain.MovieGroup, 0, 128)
	for _, p := range paths {
		if !strings.HasSuffix(p, ".xml") {
			continue
		}
		if !w.keep(p) {
			continue
		}
		movie, doc, ok := domain.SplitDocPath(p)
		if !ok {
			continue
		}
		v := &domain.DocumentVersion{Movie: movie, Doc: doc, Path: p}
		if i, ok := index[movie]; ok {
			groups[i].Versions = append(groups[i].Versions, v)
			continue
		}
		index[movie] = len(groups)
		groups = append(groups, domain.MovieGroup{Movie: movie, Versions: []*domain.DocumentVersion{v}})
	}
	return groups
}
