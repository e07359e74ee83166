package httpx

import (
	"errors"
	"net/http"
	"time"
)

const (
	defaultRetryMax = 2
	apiTimeout      = 20 * time.Second

	// userAgent 固定且可识别：OPUS 是公共语料服务，礼貌的客户端
	// 应该可被服务端辨认与联系。
	userAgent = "opsub/1.0 (+https://github.com/John-Robertt/opsub)"
)

// Transport 把“统一 UA + 有界重试”固化为统一策略。
//
// 设计目标：opus 客户端只负责“定位 URL + 解析响应”，不关心网络策略细节。
type Transport struct {
	Base http.RoundTripper

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 2 表示最多 3 次尝试。
	RetryMax int
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对“可重放”的请求做重试：GET/HEAD 且无 body。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 {
		max = 0
	}
	if !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		r := cloneRequest(req)
		if r.Header.Get("User-Agent") == "" {
			r.Header.Set("User-Agent", userAgent)
		}

		resp, err := t.Base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			// ctx 已取消：不再重试，直接返回最后错误（更可解释）。
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func cloneRequest(req *http.Request) *http.Request {
	// Clone 会复制 Header 等，避免在 RoundTripper 内部“污染”调用方的 request。
	return req.Clone(req.Context())
}

// NewAPIClient 构造用于 OPUS 目录接口（小响应）的 HTTP client：
// 有界重试 + 总超时。
func NewAPIClient() *http.Client {
	return &http.Client{
		Transport: newTransport(),
		Timeout:   apiTimeout,
	}
}

// NewDownloadClient 构造用于档案下载的 HTTP client。
//
// 档案动辄数 GB，总超时会把慢而健康的下载杀掉，因此只设握手与响应头
// 超时；传输中途的停滞由调用方用 ctx 控制。
func NewDownloadClient() *http.Client {
	return &http.Client{
		Transport: newTransport(),
	}
}

func newTransport() *Transport {
	return &Transport{
		Base: &http.Transport{
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 15 * time.Second,
		},
		RetryMax: defaultRetryMax,
	}
}
