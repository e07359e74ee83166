package source

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/opsub/internal/domain"
)

// Dir 是目录树适配器：与 zip 容器等价的解包布局
// <root>/…/<year>/<movie>/<doc>.xml。
//
// 归档语言标签取自根目录名（…/en/ => "en"）。
type Dir struct {
	root string
	win  YearWindow
}

var _ Source = (*Dir)(nil)

// NewDir 构造目录树适配器。root 不存在时在第一次 Groups/Open 报
// *UnavailableError，而不是在构造时。
func NewDir(root string, win YearWindow) *Dir {
	return &Dir{root: filepath.Clean(strings.TrimSpace(root)), win: win}
}

func (d *Dir) Language() string {
	return filepath.Base(d.root)
}

// Groups 遍历目录树收集 .xml 文档。
//
// 注意：枚举阶段只看路径，不读文件内容；排序与分组在 groupPaths 里
// 统一完成（遍历顺序不可信）。
func (d *Dir) Groups(ctx context.Context) ([]domain.MovieGroup, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UnavailableError{Op: "list", Path: d.root, Err: err}
	}

	paths := make([]string, 0, 128)
	err := filepath.WalkDir(d.root, func(path string, de fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if de.IsDir() {
			return nil
		}
		if strings.ToLower(filepath.Ext(de.Name())) != ".xml" {
			return nil
		}
		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, &UnavailableError{Op: "list", Path: d.root, Err: err}
	}
	return groupPaths(paths, d.win), nil
}

func (d *Dir) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UnavailableError{Op: "open", Path: path, Err: err}
	}
	f, err := os.Open(filepath.Join(d.root, filepath.FromSlash(path)))
	if err != nil {
		return nil, &UnavailableError{Op: "open", Path: path, Err: err}
	}
	return f, nil
}
