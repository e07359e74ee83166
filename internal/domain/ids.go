package domain

import (
	"regexp"
	"strings"
)

// MovieID 是影片的目录标识（IMDb 风格，例如 "tt0000123" 或纯数字 "123456"）。
//
// 约束：ID 不允许包含 '-'，因为文件模式的输出文件名用 '-' 连接
// movie id 与 doc id，必须保证从文件名可以无歧义地还原两个 ID。
type MovieID string

// DocID 是某部影片下一次字幕上传的文档标识（组内唯一）。
type DocID string

var idRE = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

// ParseMovieID 校验并解析 movie id。
func ParseMovieID(s string) (MovieID, bool) {
	s = strings.TrimSpace(s)
	if !idRE.MatchString(s) {
		return "", false
	}
	return MovieID(s), true
}

// ParseDocID 校验并解析 doc id。
func ParseDocID(s string) (DocID, bool) {
	s = strings.TrimSpace(s)
	if !idRE.MatchString(s) {
		return "", false
	}
	return DocID(s), true
}

// SplitDocPath 从归档内路径解析 (movie id, doc id)。
//
// 归档布局固定为 …/<year>/<movie>/<doc>.xml（OPUS raw 布局），
// 因此取倒数第二段为 movie id、最后一段去掉 .xml 为 doc id。
// 路径必须使用 '/' 分隔（zip 与目录适配器统一先转成 slash 路径）。
func SplitDocPath(p string) (MovieID, DocID, bool) {
	p = strings.TrimSpace(p)
	if !strings.HasSuffix(p, ".xml") {
		return "", "", false
	}
	segs := strings.Split(p[:len(p)-len(".xml")], "/")
	if len(segs) < 2 {
		return "", "", false
	}
	m, ok := ParseMovieID(segs[len(segs)-2])
	if !ok {
		return "", "", false
	}
	d, ok := ParseDocID(segs[len(segs)-1])
	if !ok {
		return "", "", false
	}
	return m, d, true
}
