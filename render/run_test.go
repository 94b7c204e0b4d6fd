package render

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/encoding/charmap"

	"nscale/config"
	"nscale/state"
)

// setupTestEnv creates a test environment with default configuration
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = zaptest.NewLogger(t)
	env.Cfg = cfg
	return ctx, env
}

func writeFile(t *testing.T, name string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(name, data, 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

const sampleMarkdown = `# Sample

![scaled](img/a.svg){data-scale-to-natural-size="50%"}

<img src="img/a.svg" data-nscale="2">

![plain](img/a.svg)
`

func newSource(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "img", "a.svg"), []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="200" height="50"/>`))
	writeFile(t, filepath.Join(dir, "doc.md"), []byte(sampleMarkdown))
	return dir
}

func newRenderer(t *testing.T, env *state.LocalEnv) *Renderer {
	t.Helper()
	r, err := New(&env.Cfg.Document, env.Log)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestProcess_MarkdownStages(t *testing.T) {
	tests := []struct {
		stage   config.Stage
		want    []string
		notWant []string
	}{
		{config.StageHtml, []string{`width="100"`, `width="400"`}, nil},
		// raw HTML is not part of markdown AST
		{config.StageAst, []string{`width="100"`}, []string{`width="400"`}},
	}
	for _, tt := range tests {
		t.Run(tt.stage.String(), func(t *testing.T) {
			ctx, env := setupTestEnv(t)
			env.Cfg.Document.Transform.AllowAbbreviation = true
			env.Cfg.Document.Markdown.Stage = tt.stage

			src, dst := newSource(t), t.TempDir()
			if err := process(ctx, newRenderer(t, env), filepath.Join(src, "doc.md"), dst, env.Log); err != nil {
				t.Fatalf("process() error = %v", err)
			}

			got := readFile(t, filepath.Join(dst, "doc.html"))
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output does not contain %q:\n%s", w, got)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("output contains %q:\n%s", w, got)
				}
			}
			if n := strings.Count(got, "width="); n != len(tt.want) {
				t.Errorf("found %d widths, want %d:\n%s", n, len(tt.want), got)
			}
		})
	}
}

func TestProcess_MarkdownRemovedDirectives(t *testing.T) {
	ctx, env := setupTestEnv(t)
	env.Cfg.Document.Transform.AllowAbbreviation = true
	env.Cfg.Document.Markdown.Stage = config.StageHtml

	src, dst := newSource(t), t.TempDir()
	writeFile(t, filepath.Join(src, "doc.md"), []byte("![a](img/a.svg){data-nscale=false}\n\n![b](img/a.svg){x=null id=null data-scale-to-natural-size=null}\n"))
	if err := process(ctx, newRenderer(t, env), filepath.Join(src, "doc.md"), dst, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}

	got := readFile(t, filepath.Join(dst, "doc.html"))
	for _, w := range []string{"width=", "data-nscale", "data-scale-to-natural-size", " x=", " id="} {
		if strings.Contains(got, w) {
			t.Errorf("output contains %q:\n%s", w, got)
		}
	}
	if n := strings.Count(got, "<img"); n != 2 {
		t.Errorf("found %d images, want 2:\n%s", n, got)
	}
}

func TestProcess_HTML(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src, dst := newSource(t), t.TempDir()

	page, err := charmap.Windows1251.NewEncoder().String(`<!DOCTYPE html><html><head><meta charset="windows-1251"><title>Кот</title></head>` +
		`<body><img src="img/a.svg" alt="кот" data-scale-to-natural-size="1.5"></body></html>`)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	writeFile(t, filepath.Join(src, "page.htm"), []byte(page))

	if err := process(ctx, newRenderer(t, env), filepath.Join(src, "page.htm"), dst, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	got := readFile(t, filepath.Join(dst, "page.html"))
	for _, w := range []string{`<title>Кот</title>`, `alt="кот"`, `width="300"`} {
		if !strings.Contains(got, w) {
			t.Errorf("output does not contain %q:\n%s", w, got)
		}
	}
}

func TestProcess_MarkdownBOM(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src, dst := newSource(t), t.TempDir()
	writeFile(t, filepath.Join(src, "bom.md"), append([]byte{0xEF, 0xBB, 0xBF}, "# Title\n"...))

	if err := process(ctx, newRenderer(t, env), filepath.Join(src, "bom.md"), dst, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if got := readFile(t, filepath.Join(dst, "bom.html")); got != "<h1>Title</h1>\n" {
		t.Errorf("output = %q", got)
	}
}

func TestProcess_Directory(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src, dst := newSource(t), t.TempDir()
	writeFile(t, filepath.Join(src, "part", "ch10.md"), []byte("![x](../img/a.svg){data-scale-to-natural-size=2}\n"))
	writeFile(t, filepath.Join(src, "part", "ch2.markdown"), []byte("text\n"))
	writeFile(t, filepath.Join(src, "notes.txt"), []byte("ignored"))

	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	if err := process(ctx, newRenderer(t, env), src, dst, log); err != nil {
		t.Fatalf("process() error = %v", err)
	}

	if got := readFile(t, filepath.Join(dst, "part", "ch10.html")); !strings.Contains(got, `width="400"`) {
		t.Errorf("ch10 output = %q", got)
	}
	if _, err := os.Stat(filepath.Join(dst, "notes.html")); !os.IsNotExist(err) {
		t.Errorf("unsupported file was processed: %v", err)
	}

	var order []string
	for _, e := range logs.FilterMessage("Rendering starting").All() {
		rel, _ := filepath.Rel(src, e.ContextMap()["from"].(string))
		order = append(order, filepath.ToSlash(rel))
	}
	want := []string{"doc.md", "part/ch2.markdown", "part/ch10.md"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("processing order = %v, want %v", order, want)
	}
}

func TestProcess_Overwrite(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src, dst := newSource(t), t.TempDir()
	out := filepath.Join(dst, "doc.html")
	writeFile(t, out, []byte("old"))

	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)
	r := newRenderer(t, env)

	// per file failure does not fail the run
	if err := process(ctx, r, filepath.Join(src, "doc.md"), dst, log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if got := readFile(t, out); got != "old" {
		t.Errorf("existing file was replaced: %q", got)
	}
	if logs.FilterMessage("Unable to process file").Len() != 1 {
		t.Errorf("expected error to be logged: %v", logs.All())
	}

	env.Overwrite = true
	if err := process(ctx, r, filepath.Join(src, "doc.md"), dst, log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if got := readFile(t, out); !strings.Contains(got, "<h1>Sample</h1>") {
		t.Errorf("file was not replaced: %q", got)
	}
}

func TestProcess_Errors(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := newSource(t)
	writeFile(t, filepath.Join(src, "notes.txt"), []byte("x"))
	r := newRenderer(t, env)

	if err := process(ctx, r, filepath.Join(src, "missing.md"), t.TempDir(), env.Log); err == nil {
		t.Error("expected error for missing source")
	}
	if err := process(ctx, r, filepath.Join(src, "notes.txt"), t.TempDir(), env.Log); err == nil {
		t.Error("expected error for unsupported source")
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if err := process(cctx, r, src, t.TempDir(), env.Log); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		rel    string
		noDirs bool
		want   string
	}{
		{"doc.md", false, "out/doc.html"},
		{"a/b/doc.markdown", false, "out/a/b/doc.html"},
		{"a/b/doc.markdown", true, "out/doc.html"},
		{"page.htm", false, "out/page.html"},
		{"v1.2.md", false, "out/v1.2.html"},
	}
	for _, tt := range tests {
		got := outputPath(filepath.FromSlash(tt.rel), "out", ".html", tt.noDirs)
		if filepath.ToSlash(got) != tt.want {
			t.Errorf("outputPath(%q, %v) = %q, want %q", tt.rel, tt.noDirs, got, tt.want)
		}
	}
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name: "render",
		Flags: []cli.Flag{
			&cli.FloatFlag{Name: "prescale"},
			&cli.BoolFlag{Name: "abbrev"},
			&cli.StringFlag{Name: "stage"},
			&cli.BoolFlag{Name: "nodirs", Aliases: []string{"nd"}},
			&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}},
		},
		Action: Run,
	}
}

func TestRun_Flags(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src, dst := newSource(t), t.TempDir()

	args := []string{"render", "--prescale", "0.5", "--abbrev", "--stage", "html", "--nodirs", src, dst}
	if err := renderCommand().Run(ctx, args); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !env.NoDirs || env.Overwrite {
		t.Errorf("flags not stored in environment: nodirs=%v overwrite=%v", env.NoDirs, env.Overwrite)
	}
	if env.Cfg.Document.Transform.Prescale != 0.5 || !env.Cfg.Document.Transform.AllowAbbreviation {
		t.Errorf("transform configuration not updated: %+v", env.Cfg.Document.Transform)
	}

	got := readFile(t, filepath.Join(dst, "doc.html"))
	for _, w := range []string{`width="50"`, `width="200"`} {
		if !strings.Contains(got, w) {
			t.Errorf("output does not contain %q:\n%s", w, got)
		}
	}
}

func TestRun_BadArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no source", []string{"render"}},
		{"zero prescale", []string{"render", "--prescale", "0", "doc.md"}},
		{"missing source", []string{"render", filepath.Join(t.TempDir(), "none.md")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := setupTestEnv(t)
			if err := renderCommand().Run(ctx, tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMeasure(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	src := newSource(t)

	var out bytes.Buffer
	cmd := &cli.Command{
		Name:   "measure",
		Writer: &out,
		Flags:  []cli.Flag{&cli.StringFlag{Name: "base"}},
		Action: Measure,
	}
	args := []string{"measure", "--base", src, "img/a.svg", "img/missing.png", "data:image/svg+xml,<svg viewBox='0 0 64 64'/>"}
	if err := cmd.Run(ctx, args); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := "200\timg/a.svg\n-\timg/missing.png\n64\tdata:image/svg+xml,<svg viewBox='0 0 64 64'/>\n"
	if got := out.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRenderer_Cache(t *testing.T) {
	ctx, env := setupTestEnv(t)
	env.Cfg.Document.Transform.CachePath = filepath.Join(t.TempDir(), "cache", "widths.db")
	src, dst := newSource(t), t.TempDir()

	r := newRenderer(t, env)
	if err := process(ctx, r, filepath.Join(src, "doc.md"), dst, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if _, err := os.Stat(env.Cfg.Document.Transform.CachePath); err != nil {
		t.Errorf("cache was not created: %v", err)
	}
}
