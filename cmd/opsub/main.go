package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/John-Robertt/opsub/internal/app/run"
	"github.com/John-Robertt/opsub/internal/config"
	"github.com/John-Robertt/opsub/internal/domain"
	"github.com/John-Robertt/opsub/internal/opus"
	"github.com/John-Robertt/opsub/internal/source"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	var code int
	switch args[0] {
	case "extract":
		code = extractCmd(args[1:])
	case "stream":
		code = streamCmd(args[1:])
	case "fetch":
		code = fetchCmd(args[1:])
	case "langs":
		code = langsCmd(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		code = 2
	}
	if code != 0 {
		os.Exit(code)
	}
}

func extractCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printExtractUsage()
			return 0
		}
	}

	cli, err := parsePipelineArgs(args, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printExtractUsage()
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		emitReport(reportForConfigError(err))
		return 1
	}
	// extract 必须是文件模式：未指定 out 时落在 cwd 下的 out/。
	if eff.Out == "" {
		eff.Out = filepath.Join(cwd, "out")
	}

	progressW, interactive := pickProgressWriter()
	var obs run.Observer
	if interactive {
		obs = newProgressUI(progressW)
	}

	rep, runErr := run.Extract(context.Background(), buildSource(eff), eff, obs)
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "运行中止：%v\n", runErr)
	}

	emitReport(rep)
	if interactive {
		fmt.Fprintf(progressW, "out: %s\n", eff.Out)
	}
	if runErr == nil && rep.Summary.Failed == 0 {
		return 0
	}
	return 1
}

func streamCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printStreamUsage()
			return 0
		}
	}

	cli, err := parsePipelineArgs(args, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printStreamUsage()
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	eff.Out = "" // stream 模式：记录只走 stdout

	s := run.NewStream(context.Background(), buildSource(eff), eff, nil)
	defer s.Close()

	// stdout 契约：stream 模式下 stdout 只有 TSV 记录（text\tmovie\tdoc）。
	w := bufio.NewWriter(os.Stdout)
	for {
		rec, ok := s.Next()
		if !ok {
			break
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", rec.Text, rec.Movie, rec.Doc); err != nil {
			fmt.Fprintf(os.Stderr, "写 stdout 失败：%v\n", err)
			return 1
		}
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "写 stdout 失败：%v\n", err)
		return 1
	}

	rep := s.Report()
	fmt.Fprintf(os.Stderr, "完成：extracted=%d skipped=%d failed=%d lines=%d\n",
		rep.Summary.Extracted, rep.Summary.Skipped, rep.Summary.Failed, rep.Summary.Lines,
	)
	if s.Err() != nil {
		fmt.Fprintf(os.Stderr, "运行中止：%v\n", s.Err())
		return 1
	}
	if rep.Summary.Failed > 0 {
		return 1
	}
	return 0
}

func fetchCmd(args []string) int {
	var (
		lang      string
		dir       string
		dirSet    bool
		overwrite bool
	)
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case isHelp(a):
			printFetchUsage()
			return 0
		case a == "--dir":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "参数错误：--dir 需要一个值\n")
				return 2
			}
			i++
			dir, dirSet = args[i], true
		case strings.HasPrefix(a, "--dir="):
			dir, dirSet = strings.TrimPrefix(a, "--dir="), true
		case a == "--overwrite":
			overwrite = true
		case strings.HasPrefix(a, "-"):
			fmt.Fprintf(os.Stderr, "参数错误：未知参数 %q\n", a)
			return 2
		default:
			if lang != "" {
				fmt.Fprintf(os.Stderr, "参数错误：重复的语言标签：%q 与 %q\n", lang, a)
				return 2
			}
			lang = a
		}
	}
	if lang == "" {
		fmt.Fprintf(os.Stderr, "参数错误：缺少语言标签\n\n")
		printFetchUsage()
		return 2
	}
	if !opus.ValidTag(lang) {
		fmt.Fprintf(os.Stderr, "参数错误：非法语言标签 %q（用 \"opsub langs\" 查看可用标签）\n", lang)
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}
	if !dirSet {
		// fetch 的落盘目录也走配置发现（download_dir），默认 cwd。
		eff, cfgErr := config.LoadEffective(cwd, config.CLIArgs{Path: "."})
		if cfgErr != nil {
			fmt.Fprintf(os.Stderr, "%v\n", cfgErr)
			return 1
		}
		dir = eff.DownloadDir
	}

	progressW, interactive := pickProgressWriter()
	var progress opus.ProgressFunc
	if interactive {
		progress = newFetchProgress(progressW)
	}

	dst, err := opus.NewClient().FetchArchive(context.Background(), lang, dir, overwrite, progress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "下载失败：%v\n", err)
		return 1
	}
	if interactive {
		fmt.Fprintln(progressW)
	}
	// stdout 只输出最终路径，便于 shell 管道接 extract/stream。
	fmt.Fprintln(os.Stdout, dst)
	return 0
}

func langsCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			fmt.Fprint(os.Stdout, "用法：\n  opsub langs\n\n列出 OpenSubtitles 语料可用的语言标签（每行一个）。\n")
			return 0
		}
	}

	langs, err := opus.NewClient().Languages(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取语言列表失败：%v\n", err)
		return 1
	}
	for _, l := range langs {
		fmt.Fprintln(os.Stdout, l)
	}
	return 0
}

// parsePipelineArgs 解析 extract/stream 共享的参数集。
// withOut 为 false 时拒绝 --out（stream 模式没有文件落盘）。
func parsePipelineArgs(args []string, withOut bool) (config.CLIArgs, error) {
	var cli config.CLIArgs

	needValue := func(args []string, i int, name string) (string, int, error) {
		if i+1 >= len(args) {
			return "", i, fmt.Errorf("%s 需要一个值", name)
		}
		return args[i+1], i + 1, nil
	}
	parseBoolFlag := func(a, name string) (val, ok bool, err error) {
		if a == name {
			return true, true, nil
		}
		if !strings.HasPrefix(a, name+"=") {
			return false, false, nil
		}
		switch strings.TrimPrefix(a, name+"=") {
		case "true":
			return true, true, nil
		case "false":
			return false, true, nil
		default:
			return false, false, fmt.Errorf("%s 只能是 true 或 false", name)
		}
	}
	parseIntValue := func(s, name string) (int, error) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("%s 需要整数，实际是 %q", name, s)
		}
		return n, nil
	}

	for i := 0; i < len(args); i++ {
		a := args[i]

		if v, ok, err := parseBoolFlag(a, "--distinct-title"); err != nil {
			return config.CLIArgs{}, err
		} else if ok {
			cli.DistinctTitle, cli.DistinctTitleSet = v, true
			continue
		}
		if v, ok, err := parseBoolFlag(a, "--original-only"); err != nil {
			return config.CLIArgs{}, err
		} else if ok {
			cli.OriginalOnly, cli.OriginalOnlySet = v, true
			continue
		}
		if v, ok, err := parseBoolFlag(a, "--cased-only"); err != nil {
			return config.CLIArgs{}, err
		} else if ok {
			cli.CasedOnly, cli.CasedOnlySet = v, true
			continue
		}
		if v, ok, err := parseBoolFlag(a, "--dedup"); err != nil {
			return config.CLIArgs{}, err
		} else if ok {
			cli.Deduplicate, cli.DeduplicateSet = v, true
			continue
		}

		switch {
		case withOut && a == "--out":
			v, ni, err := needValue(args, i, "--out")
			if err != nil {
				return config.CLIArgs{}, err
			}
			i = ni
			cli.Out, cli.OutSet = v, true
		case withOut && strings.HasPrefix(a, "--out="):
			cli.Out, cli.OutSet = strings.TrimPrefix(a, "--out="), true
		case a == "--sample-size":
			v, ni, err := needValue(args, i, "--sample-size")
			if err != nil {
				return config.CLIArgs{}, err
			}
			i = ni
			n, err := parseIntValue(v, "--sample-size")
			if err != nil {
				return config.CLIArgs{}, err
			}
			cli.SampleSize, cli.SampleSizeSet = n, true
		case strings.HasPrefix(a, "--sample-size="):
			n, err := parseIntValue(strings.TrimPrefix(a, "--sample-size="), "--sample-size")
			if err != nil {
				return config.CLIArgs{}, err
			}
			cli.SampleSize, cli.SampleSizeSet = n, true
		case a == "--min-year":
			v, ni, err := needValue(args, i, "--min-year")
			if err != nil {
				return config.CLIArgs{}, err
			}
			i = ni
			n, err := parseIntValue(v, "--min-year")
			if err != nil {
				return config.CLIArgs{}, err
			}
			cli.MinYear, cli.MinYearSet = n, true
		case strings.HasPrefix(a, "--min-year="):
			n, err := parseIntValue(strings.TrimPrefix(a, "--min-year="), "--min-year")
			if err != nil {
				return config.CLIArgs{}, err
			}
			cli.MinYear, cli.MinYearSet = n, true
		case a == "--max-year":
			v, ni, err := needValue(args, i, "--max-year")
			if err != nil {
				return config.CLIArgs{}, err
			}
			i = ni
			n, err := parseIntValue(v, "--max-year")
			if err != nil {
				return config.CLIArgs{}, err
			}
			cli.MaxYear, cli.MaxYearSet = n, true
		case strings.HasPrefix(a, "--max-year="):
			n, err := parseIntValue(strings.TrimPrefix(a, "--max-year="), "--max-year")
			if err != nil {
				return config.CLIArgs{}, err
			}
			cli.MaxYear, cli.MaxYearSet = n, true
		case strings.HasPrefix(a, "-"):
			return config.CLIArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if cli.Path != "" {
				return config.CLIArgs{}, fmt.Errorf("重复的 path：%q 与 %q", cli.Path, a)
			}
			cli.Path = a
		}
	}
	return cli, nil
}

// buildSource 按路径形态选适配器：.zip 档案 or 解包目录树。
func buildSource(eff config.EffectiveConfig) source.Source {
	win := source.YearWindow{Min: eff.MinYear, Max: eff.MaxYear}
	if strings.EqualFold(filepath.Ext(eff.Path), ".zip") {
		return source.NewZip(eff.Path, win)
	}
	return source.NewDir(eff.Path, win)
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  opsub extract [path] [--out DIR] [过滤参数]   提取为 <movie>-<doc>.txt 文件
  opsub stream  [path] [过滤参数]               提取为 stdout TSV 记录（text\tmovie\tdoc）
  opsub fetch   <lang> [--dir DIR] [--overwrite] 下载整语言的 raw 档案
  opsub langs                                    列出可用语言标签

path 可以是 .zip 档案或解包后的目录树；未指定时读 opsub.json。
使用 "opsub <命令> --help" 查看详细说明。
`)
}

func printExtractUsage() {
	fmt.Fprint(os.Stdout, `用法：
  opsub extract [path] [--out DIR] [过滤参数]

参数：
  --out DIR              输出目录（默认 <cwd>/out）
  --distinct-title       组内按标题去重（首见保留）
  --original-only        只保留原始语言（非翻译）的版本
  --cased-only           只保留保留大小写的版本
  --dedup                跨文档的行级全局去重
  --sample-size N        大小写判定的采样行数（默认 10）
  --min-year N           年份下界（含）
  --max-year N           年份上界（含）
  -h, --help             显示帮助

布尔参数支持 --flag=false 覆盖配置文件里的 true。
stdout 非 TTY 时只输出一个 report JSON；过程信息走 stderr。
`)
}

func printStreamUsage() {
	fmt.Fprint(os.Stdout, `用法：
  opsub stream [path] [过滤参数]

与 extract 相同的过滤参数（无 --out）。stdout 逐行输出
text\tmovie\tdoc 记录；摘要与过程信息走 stderr。
`)
}

func printFetchUsage() {
	fmt.Fprint(os.Stdout, `用法：
  opsub fetch <lang> [--dir DIR] [--overwrite]

参数：
  --dir DIR    落盘目录（默认读 opsub.json 的 download_dir，最终默认 cwd）
  --overwrite  目标已存在时重新下载并替换（默认跳过）
  -h, --help   显示帮助

成功时 stdout 输出 .zip 的最终路径（便于管道接 extract/stream）。
`)
}

func emitReport(rep domain.ExtractReport) {
	if isTTY(os.Stdout) {
		fmt.Fprintf(os.Stdout, "完成：extracted=%d skipped=%d failed=%d lines=%d\n",
			rep.Summary.Extracted, rep.Summary.Skipped, rep.Summary.Failed, rep.Summary.Lines,
		)
		if rep.Summary.Failed > 0 {
			for _, it := range rep.Items {
				if it.Status != domain.StatusFailed {
					continue
				}
				key := it.Movie + "/" + it.Doc
				if key == "/" {
					key = "<run>"
				}
				fmt.Fprintf(os.Stderr, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
			}
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 ExtractReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rep)
	fmt.Fprintf(os.Stderr, "完成：extracted=%d skipped=%d failed=%d lines=%d\n",
		rep.Summary.Extracted, rep.Summary.Skipped, rep.Summary.Failed, rep.Summary.Lines,
	)
}

func reportForConfigError(err error) domain.ExtractReport {
	now := time.Now().UTC()
	rep := domain.ExtractReport{
		Mode:       "files",
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.DocResult{{
			Status:    domain.StatusFailed,
			ErrorCode: config.Code(err),
			ErrorMsg:  err.Error(),
		}},
	}
	rep.Finalize()
	return rep
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout 契约）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}
