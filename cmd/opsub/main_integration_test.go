package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/John-Robertt/opsub/internal/domain"
)

func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("读取 cwd 失败：%v", err)
	}
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func writeMiniCorpus(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "en")
	p := filepath.Join(root, "2001", "100", "1.xml")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	body := `<document><meta><source><title>Movie</title></source></meta>` +
		`<s><w id="1.1">Hello</w><w id="1.2" attach="left">,</w><w id="1.3">world</w></s>` +
		`<s>Second line</s></document>`
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("写文档失败：%v", err)
	}
	return root
}

func TestCLI_NoTTY_StreamStdoutOnlyTSV(t *testing.T) {
	// 这个测试锁定对外契约：stream 模式下 stdout 只能是 TSV 记录（摘要/过程必须走 stderr）。
	root := writeMiniCorpus(t)

	cmd := exec.Command("go", "run", "./cmd/opsub", "stream", root)
	cmd.Dir = repoRoot(t)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("运行失败：%v\nstderr:\n%s", err, stderr.String())
	}

	lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("期望 2 条记录，实际 %d：\n%s", len(lines), stdout.String())
	}
	if lines[0] != "Hello, world\t100\t1" {
		t.Fatalf("第一条记录不符：%q", lines[0])
	}
	for _, l := range lines {
		if strings.Count(l, "\t") != 2 {
			t.Fatalf("记录必须是 3 列 TSV：%q", l)
		}
	}
	if !strings.Contains(stderr.String(), "完成：") {
		t.Fatalf("摘要必须走 stderr：\n%s", stderr.String())
	}
}

func TestCLI_NoTTY_ExtractStdoutOnlyReportJSON(t *testing.T) {
	root := writeMiniCorpus(t)
	out := t.TempDir()

	cmd := exec.Command("go", "run", "./cmd/opsub", "extract", root, "--out", out)
	cmd.Dir = repoRoot(t)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("运行失败：%v\nstderr:\n%s", err, stderr.String())
	}

	var rep domain.ExtractReport
	dec := json.NewDecoder(bytes.NewReader(stdout.Bytes()))
	if err := dec.Decode(&rep); err != nil {
		t.Fatalf("stdout 必须是一个 ExtractReport JSON：%v\n%s", err, stdout.String())
	}
	if dec.More() {
		t.Fatalf("stdout 不允许有 JSON 之外的内容：\n%s", stdout.String())
	}
	if rep.Summary.Extracted != 1 || rep.Summary.Lines != 2 {
		t.Fatalf("summary 不符：%+v", rep.Summary)
	}

	b, err := os.ReadFile(filepath.Join(out, "100-1.txt"))
	if err != nil {
		t.Fatalf("期望写出 100-1.txt：%v", err)
	}
	if string(b) != "Hello, world\nSecond line\n" {
		t.Fatalf("文件内容不符：%q", b)
	}
}

func TestCLI_ConfigErrorStillEmitsReport(t *testing.T) {
	// cwd 指向空目录：无参且无 opsub.json。go run 无法在模块外的 cwd
	// 解析包路径，所以先在模块根编译出二进制，再从空目录运行。
	empty := t.TempDir()
	bin := filepath.Join(t.TempDir(), "opsub")
	build := exec.Command("go", "build", "-o", bin, "./cmd/opsub")
	build.Dir = repoRoot(t)
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("编译失败：%v\n%s", err, out)
	}
	cmd := exec.Command(bin, "extract")
	cmd.Dir = empty

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	_ = cmd.Run() // 期望非零退出

	var rep domain.ExtractReport
	if err := json.Unmarshal(stdout.Bytes(), &rep); err != nil {
		t.Fatalf("配置错误也必须输出 report JSON：%v\n%s", err, stdout.String())
	}
	if len(rep.Items) != 1 || rep.Items[0].ErrorCode != domain.ErrCodeConfigNotFound {
		t.Fatalf("期望 config_not_found 条目：%+v", rep.Items)
	}
}
