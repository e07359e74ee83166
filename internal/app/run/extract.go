package run

import (
	"context"
	"strings"

	"github.com/John-Robertt/opsub/internal/config"
	"github.com/John-Robertt/opsub/internal/domain"
	"github.com/John-Robertt/opsub/internal/infra/fsx"
	"github.com/John-Robertt/opsub/internal/source"
)

// Extract 以文件模式跑完整条管道：每个提取成功的文档把（去重后的）
// 行写到 <out>/<movie>-<doc>.txt。id 字符集不含 '-'，因此文件名可以
// 无歧义地拆回 (movie, doc)。
//
// 单个文档写盘失败记为 io_failed 条目，run 继续；返回的 error 仅在
// 致命错误（source 不可用/上下文取消）时非 nil，此时 report 仍然有效
// 并带有说明原因的合成条目。
func Extract(ctx context.Context, src source.Source, eff config.EffectiveConfig, obs Observer) (domain.ExtractReport, error) {
	s := NewStream(ctx, src, eff, obs)
	s.docHook = func(res *domain.DocResult, lines []string) {
		name := res.Movie + "-" + res.Doc + ".txt"
		if err := fsx.WriteFileAtomicReplace(eff.Out, name, joinLines(lines)); err != nil {
			res.Status = domain.StatusFailed
			res.ErrorCode = domain.ErrCodeIOFailed
			res.ErrorMsg = err.Error()
			res.Lines = 0
			return
		}
		res.Out = name
	}

	for {
		if _, ok := s.Next(); !ok {
			break
		}
	}
	return s.Report(), s.Err()
}

// joinLines 产出每行以 \n 结尾的文件体；零行文档写出空文件
// （文档存在本身是信息，缺文件会被误读为“没处理”）。
func joinLines(lines []string) []byte {
	if len(lines) == 0 {
		return nil
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}
