// Package opus 是 OPUS OpenSubtitles 语料服务的最小客户端：
// 列出可用语言标签 + 下载整语言的 raw 档案。
package opus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	"github.com/John-Robertt/opsub/internal/infra/fsx"
	"github.com/John-Robertt/opsub/internal/infra/httpx"
)

const (
	// DefaultAPIURL 是 OPUS 目录接口。
	DefaultAPIURL = "https://opus.nlpl.eu/opusapi/"
	// DefaultDownloadURL 是 raw 档案的对象存储前缀（<lang>.zip 直接拼在后面）。
	DefaultDownloadURL = "https://object.pouta.csc.fi/OPUS-OpenSubtitles/v2024/raw/"

	corpusName = "OpenSubtitles"
)

// tagRE 约束语言标签的字符集：它会被拼进 URL 和本地文件名，
// 放开字符集就是路径注入。
var tagRE = regexp.MustCompile(`^[a-z0-9_]+$`)

// ValidTag 判断 s 是否是合法的 OPUS 语言标签。
func ValidTag(s string) bool { return tagRE.MatchString(s) }

// StatusError 表示服务端返回了非 200 状态码。
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s 返回 %d", e.URL, e.StatusCode)
}

// ProgressFunc 在下载过程中周期性回调（written 为已写字节，total 来自
// Content-Length，可能为 0 表示未知）。
type ProgressFunc func(written, total int64)

// Client 访问 OPUS 服务。零值不可用，用 NewClient 构造；
// 两个 base 字段留空时用默认 URL（测试用 httptest 覆盖）。
type Client struct {
	API      *http.Client
	Download *http.Client

	APIBase      string
	DownloadBase string
}

func NewClient() *Client {
	return &Client{
		API:      httpx.NewAPIClient(),
		Download: httpx.NewDownloadClient(),
	}
}

// Languages 列出 OpenSubtitles 语料当前可用的语言标签（保持服务端顺序）。
func (c *Client) Languages(ctx context.Context) ([]string, error) {
	base := c.APIBase
	if base == "" {
		base = DefaultAPIURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("languages", "true")
	q.Set("corpus", corpusName)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.API.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: u.String(), StatusCode: resp.StatusCode}
	}
	return parseLanguages(resp.Body)
}

// parseLanguages 解析目录接口的 JSON 响应（纯函数，方便单测）。
func parseLanguages(r io.Reader) ([]string, error) {
	var body struct {
		Languages []string `json:"languages"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, fmt.Errorf("解析语言列表失败：%w", err)
	}
	return body.Languages, nil
}

// FetchArchive 把 <lang>.zip 下载到 dir 下，返回最终路径。
//
// - 目标已存在且 overwrite=false：直接返回现有路径，不发请求
// - 写入走 同目录临时文件 + rename：中断的下载不会留下半截 .zip
//   被后续 run 误当作完整档案
func (c *Client) FetchArchive(ctx context.Context, lang, dir string, overwrite bool, progress ProgressFunc) (string, error) {
	if !ValidTag(lang) {
		return "", fmt.Errorf("非法语言标签：%q", lang)
	}

	name := lang + ".zip"
	dst := filepath.Join(dir, name)
	if !overwrite {
		if _, err := os.Stat(dst); err == nil {
			return dst, nil
		}
	}

	base := c.DownloadBase
	if base == "" {
		base = DefaultDownloadURL
	}
	srcURL := base + name

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.Download.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{URL: srcURL, StatusCode: resp.StatusCode}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	w := io.Writer(tmp)
	if progress != nil {
		w = &progressWriter{w: tmp, total: resp.ContentLength, fn: progress}
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := fsx.Rename(tmpName, dst); err != nil {
		return "", err
	}
	return dst, nil
}

type progressWriter struct {
	w       io.Writer
	written int64
	total   int64
	fn      ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if n > 0 {
		p.fn(p.written, p.total)
	}
	return n, err
}
