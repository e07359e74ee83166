package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/opsub/internal/classify"
	"github.com/John-Robertt/opsub/internal/domain"
)

const (
	// FileName 是配置文件的固定名字（在源路径旁或 cwd 下被发现）。
	FileName = "opsub.json"
	// DefaultDownloadDir 是 fetch 子命令的默认落盘目录。
	DefaultDownloadDir = "."
)

// CLIArgs 保留“是否显式指定”的信息，保证覆盖优先级可实现：
// 例如 --dedup=false 必须能覆盖 config.deduplicate=true。
type CLIArgs struct {
	Path string

	Out    string
	OutSet bool

	DistinctTitle    bool
	DistinctTitleSet bool
	OriginalOnly     bool
	OriginalOnlySet  bool
	CasedOnly        bool
	CasedOnlySet     bool
	Deduplicate      bool
	DeduplicateSet   bool

	SampleSize    int
	SampleSizeSet bool

	MinYear    int
	MinYearSet bool
	MaxYear    int
	MaxYearSet bool

	DownloadDir    string
	DownloadDirSet bool
}

// FileConfig 对应 opsub.json 的解析结构。
// 布尔开关用 *bool：缺省与显式 false 必须可区分。
type FileConfig struct {
	Path string `json:"path"`
	Out  string `json:"out"`

	DistinctTitle *bool `json:"distinct_title"`
	OriginalOnly  *bool `json:"original_only"`
	CasedOnly     *bool `json:"cased_only"`
	Deduplicate   *bool `json:"deduplicate"`

	SampleSize int `json:"sample_size"`

	MinYear int `json:"min_year"`
	MaxYear int `json:"max_year"`

	DownloadDir string `json:"download_dir"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置
// （实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// Path 是源（.zip 档案或已解包目录）的绝对路径。
	Path string
	// Out 非空表示文件模式：每个文档写到 <Out>/<movie>-<doc>.txt。
	// 为空表示 stream 模式（记录写 stdout）。
	Out string

	Policy     domain.SelectionPolicy
	SampleSize int

	// MinYear/MaxYear 为 0 表示对应端无界。
	MinYear int
	MaxYear int

	DownloadDir string
}

// Mode 返回 report 的 mode 字段值。
func (e EffectiveConfig) Mode() string {
	if e.Out != "" {
		return "files"
	}
	return "stream"
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case domain.ErrCodeConfigNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case domain.ErrCodeConfigMissingPath:
		return fmt.Sprintf("%s：配置文件 %q 缺少必填字段 path", e.Code, e.Path)
	case domain.ErrCodeConfigInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 按固定规则发现并读取配置文件，然后与 CLI 参数合并。
//
// 发现规则：
// 1) CLI 提供 path：尝试读取源旁边的 opsub.json（可选）。
//    path 指向 .zip 文件时“旁边”是其父目录；指向目录时就是该目录。
// 2) CLI 未提供 path：必须读取 <cwd>/opsub.json（必选），且必须包含 path。
//
// 覆盖优先级（固定）：CLI > config > 内置默认。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cwd, Err: err}
	}

	if strings.TrimSpace(cli.Path) != "" {
		absPath := absCleanFrom(cwdAbs, cli.Path)
		cfgPath := filepath.Join(besideDir(absPath), FileName)

		fc, _, err := readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cfgPath, Err: err}
		}
		// 不存在也不报错：CLI 已经给了 path。
		return merge(cwdAbs, absPath, cli, fc, cfgPath)
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if strings.TrimSpace(fc.Path) == "" {
		return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigMissingPath, Path: cfgPath}
	}

	absPath := absCleanFrom(cwdAbs, fc.Path)
	return merge(cwdAbs, absPath, cli, fc, cfgPath)
}

func merge(cwdAbs, absPath string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	pick := func(cliSet bool, cliVal bool, cfg *bool) bool {
		if cliSet {
			return cliVal
		}
		if cfg != nil {
			return *cfg
		}
		return false
	}

	pol := domain.SelectionPolicy{
		DistinctTitle: pick(cli.DistinctTitleSet, cli.DistinctTitle, fc.DistinctTitle),
		OriginalOnly:  pick(cli.OriginalOnlySet, cli.OriginalOnly, fc.OriginalOnly),
		CasedOnly:     pick(cli.CasedOnlySet, cli.CasedOnly, fc.CasedOnly),
		Deduplicate:   pick(cli.DeduplicateSet, cli.Deduplicate, fc.Deduplicate),
	}

	sample := classify.DefaultSampleSize
	if fc.SampleSize != 0 {
		sample = fc.SampleSize
	}
	if cli.SampleSizeSet {
		sample = cli.SampleSize
	}
	if sample < 1 {
		return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cfgPath, Err: fmt.Errorf("sample_size 必须为正数，实际是 %d", sample)}
	}

	minYear, maxYear := fc.MinYear, fc.MaxYear
	if cli.MinYearSet {
		minYear = cli.MinYear
	}
	if cli.MaxYearSet {
		maxYear = cli.MaxYear
	}
	if minYear < 0 || maxYear < 0 {
		return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cfgPath, Err: fmt.Errorf("年份窗口不允许负值：min=%d max=%d", minYear, maxYear)}
	}
	if minYear != 0 && maxYear != 0 && minYear > maxYear {
		return EffectiveConfig{}, &Error{Code: domain.ErrCodeConfigInvalid, Path: cfgPath, Err: fmt.Errorf("min_year(%d) 不能大于 max_year(%d)", minYear, maxYear)}
	}

	out := strings.TrimSpace(fc.Out)
	if cli.OutSet {
		out = strings.TrimSpace(cli.Out)
	}
	if out != "" {
		out = absCleanFrom(cwdAbs, out)
	}

	dlDir := strings.TrimSpace(fc.DownloadDir)
	if cli.DownloadDirSet {
		dlDir = strings.TrimSpace(cli.DownloadDir)
	}
	if dlDir == "" {
		dlDir = DefaultDownloadDir
	}
	dlDir = absCleanFrom(cwdAbs, dlDir)

	return EffectiveConfig{
		Path:        absPath,
		Out:         out,
		Policy:      pol,
		SampleSize:  sample,
		MinYear:     minYear,
		MaxYear:     maxYear,
		DownloadDir: dlDir,
	}, nil
}

// besideDir 返回“源旁边”的目录：.zip 档案取父目录，目录取自身。
func besideDir(absPath string) string {
	if strings.EqualFold(filepath.Ext(absPath), ".zip") {
		return filepath.Dir(absPath)
	}
	return absPath
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
