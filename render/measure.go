package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"nscale/common"
	"nscale/imgsize"
	"nscale/state"
)

// Measure prints natural width of every referenced image, one per line.
// Images which could not be measured are reported with "-" as width.
func Measure(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("measure")

	if cmd.Args().Len() == 0 {
		return errors.New("no image references have been specified")
	}

	base := cmd.String("base")
	if len(base) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return err
	}
	base = filepath.ToSlash(base)

	var cache *imgsize.Cache
	if name := env.Cfg.Document.Transform.CachePath; name != "" {
		if cache, err = imgsize.OpenCache(name); err != nil {
			return err
		}
		defer cache.Close()
	}
	r := imgsize.NewResolver(&env.Cfg.Document.Transform, cache, log)

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	for _, ref := range cmd.Args().Slice() {
		if err := ctx.Err(); err != nil {
			return err
		}
		width := "-"
		if w, ok := r.NaturalWidth(ctx, ref, base); ok {
			width = common.AttrString(w)
		}
		if _, err := fmt.Fprintf(out, "%s\t%s\n", width, ref); err != nil {
			return fmt.Errorf("unable to write result: %w", err)
		}
	}
	log.Debug("Measuring completed", zap.Int("count", cmd.Args().Len()), zap.String("base", base))
	return nil
}
