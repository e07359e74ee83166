package source

import (
	"archive/zip"
	"context"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/opsub/internal/domain"
)

// Zip 是压缩容器适配器：一个 OPUS raw 归档（例如 en.zip）。
//
// 归档语言标签取自文件名主干（en.zip => "en"）。每次 Groups/Open 都
// 独立打开并关闭容器：读操作是 scoped 的，提前放弃迭代不会留下句柄。
type Zip struct {
	path string
	win  YearWindow
}

var _ Source = (*Zip)(nil)

// NewZip 构造 zip 容器适配器。不在这里打开文件：坏路径在第一次
// Groups/Open 时以 *UnavailableError 暴露。
func NewZip(path string, win YearWindow) *Zip {
	return &Zip{path: filepath.Clean(strings.TrimSpace(path)), win: win}
}

func (z *Zip) Language() string {
	base := filepath.Base(z.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (z *Zip) Groups(ctx context.Context) ([]domain.MovieGroup, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UnavailableError{Op: "list", Path: z.path, Err: err}
	}
	r, err := zip.OpenReader(z.path)
	if err != nil {
		return nil, &UnavailableError{Op: "list", Path: z.path, Err: err}
	}
	defer r.Close()

	paths := make([]string, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		paths = append(paths, f.Name)
	}
	return groupPaths(paths, z.win), nil
}

func (z *Zip) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UnavailableError{Op: "open", Path: path, Err: err}
	}
	r, err := zip.OpenReader(z.path)
	if err != nil {
		return nil, &UnavailableError{Op: "open", Path: z.path, Err: err}
	}
	f, err := r.Open(path)
	if err != nil {
		_ = r.Close()
		return nil, &UnavailableError{Op: "open", Path: path, Err: err}
	}
	// 文档句柄与容器句柄绑定关闭：Close 一次释放全部资源。
	return &zipEntry{f: f, container: r}, nil
}

type zipEntry struct {
	f         fs.File
	container *zip.ReadCloser
}

func (e *zipEntry) Read(p []byte) (int, error) { return e.f.Read(p) }

func (e *zipEntry) Close() error {
	err := e.f.Close()
	if cerr := e.container.Close(); err == nil {
		err = cerr
	}
	return err
}
