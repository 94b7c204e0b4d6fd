package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"nscale/config"
	"nscale/state"
)

type inputKind int

const (
	inputUnknown inputKind = iota
	inputMarkdown
	inputHTML
)

func detectInput(name string) inputKind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown", ".mdown", ".mkd":
		return inputMarkdown
	case ".html", ".htm", ".xhtml":
		return inputHTML
	}
	return inputUnknown
}

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("render")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	if err := applyFlags(cmd, &env.Cfg.Document, log); err != nil {
		return err
	}
	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")

	r, err := New(&env.Cfg.Document, log)
	if err != nil {
		return fmt.Errorf("unable to prepare renderer: %w", err)
	}
	defer func() {
		if er := r.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close width cache: %w", er))
		}
	}()

	log.Info("Processing starting",
		zap.String("source", src),
		zap.String("destination", dst),
		zap.Stringer("stage", env.Cfg.Document.Markdown.Stage),
		zap.Float64("prescale", env.Cfg.Document.Transform.Prescale))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, r, src, dst, log)
}

// applyFlags puts command line overrides on top of configuration.
func applyFlags(cmd *cli.Command, cfg *config.DocumentConfig, log *zap.Logger) error {
	if cmd.IsSet("prescale") {
		p := cmd.Float("prescale")
		if !(p > 0) {
			return fmt.Errorf("prescale must be positive number, got %v", p)
		}
		cfg.Transform.Prescale = p
	}
	if cmd.IsSet("abbrev") {
		cfg.Transform.AllowAbbreviation = cmd.Bool("abbrev")
	}
	if cmd.IsSet("stage") {
		stage, err := config.ParseStage(cmd.String("stage"))
		if err != nil {
			log.Warn("Unknown processing stage requested, using configured one",
				zap.Stringer("stage", cfg.Markdown.Stage), zap.Error(err))
		} else {
			cfg.Markdown.Stage = stage
		}
	}
	return nil
}

// process determines whether source is a file or a directory and processes
// it accordingly.
func process(ctx context.Context, r *Renderer, src, dst string, log *zap.Logger) error {
	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("input source was not found: %w", err)
	}

	if fi.IsDir() {
		if err := processDir(ctx, r, src, dst, log); err != nil {
			return fmt.Errorf("unable to process directory: %w", err)
		}
		return nil
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("unexpected path mode for (%s)", src)
	}
	if detectInput(src) == inputUnknown {
		return fmt.Errorf("input was not recognized as markdown or HTML (%s)", src)
	}
	if err := processFile(ctx, r, src, filepath.Base(src), dst, log); err != nil {
		log.Error("Unable to process file", zap.String("file", src), zap.Error(err))
	}
	return nil
}

// processDir finds all markdown and HTML files under dir and processes them
// in natural order of their names.
func processDir(ctx context.Context, r *Renderer, dir, dst string, log *zap.Logger) error {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if detectInput(path) == inputUnknown {
			log.Debug("Skipping file, not recognized as markdown or HTML", zap.String("file", path))
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return err
	}

	if len(files) == 0 {
		log.Debug("Nothing to process", zap.String("dir", dir))
		return nil
	}
	sort.Sort(natural.StringSlice(files))

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(dir, rel)
		if err := processFile(ctx, r, path, rel, dst, log); err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		}
	}
	return nil
}

// processFile renders single document. "src" is full path to the document,
// "rel" is its path relative to the processed directory (or base name when
// single file was requested), "dst" is destination directory.
func processFile(ctx context.Context, r *Renderer, src, rel, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	outputName := outputPath(rel, dst, env.Cfg.Document.OutputExt, env.NoDirs)

	log.Info("Rendering starting", zap.String("from", src))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Rendering ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("rendering panic: %v", r)
		} else if rerr == nil {
			log.Info("Rendering completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
	}(time.Now())

	// source is read before anything is written, so it is fine for output to
	// replace it
	in, err := readSource(src)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	switch detectInput(src) {
	case inputMarkdown:
		err = r.Markdown(ctx, in, src, &out)
	case inputHTML:
		err = r.HTML(ctx, bytes.NewReader(in), src, &out)
	default:
		err = fmt.Errorf("unsupported input (%s)", src)
	}
	if err != nil {
		return err
	}

	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	if err := os.WriteFile(outputName, out.Bytes(), 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}

	if env.Rpt != nil {
		env.Rpt.StoreData("result/"+filepath.ToSlash(rel)+env.Cfg.Document.OutputExt, out.Bytes())
	}
	return nil
}

// readSource returns UTF-8 content of the document. Markdown may start with
// byte order mark, HTML encoding is detected from BOM and meta tags.
func readSource(name string) ([]byte, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader
	if detectInput(name) == inputHTML {
		if r, err = charset.NewReader(f, ""); err != nil {
			return nil, fmt.Errorf("unable to detect encoding of %s: %w", name, err)
		}
	} else {
		r = transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", name, err)
	}
	return data, nil
}

// outputPath builds name of produced file keeping source directory structure
// unless noDirs is set.
func outputPath(rel, dst, ext string, noDirs bool) string {
	base := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel)) + ext
	if noDirs {
		return filepath.Join(dst, base)
	}
	return filepath.Join(dst, filepath.Dir(rel), base)
}
