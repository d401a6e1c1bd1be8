package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/metaxime/pathview/pkg/errors"
	"github.com/metaxime/pathview/pkg/pathway"
	"github.com/metaxime/pathview/pkg/pipeline"
)

// renderFlags are the diagram flags shared by render and browse. Only
// flags that were set override the config file.
type renderFlags struct {
	showAux  bool
	engine   string
	theme    string
	width    float64
	height   float64
	maxScale float64
	output   string
	noCache  bool
}

func (f *renderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file (- for stdout; default <result>.svg)")
	cmd.Flags().BoolVar(&f.showAux, "aux", false, "show auxiliary compounds (cofactors)")
	cmd.Flags().StringVar(&f.engine, "engine", pipeline.DefaultEngine, "layout engine: hierarchical, graphviz")
	cmd.Flags().StringVar(&f.theme, "theme", pipeline.DefaultTheme, "structure theme: light, dark")
	cmd.Flags().Float64Var(&f.width, "width", pipeline.DefaultWidth, "view width")
	cmd.Flags().Float64Var(&f.height, "height", pipeline.DefaultHeight, "view height")
	cmd.Flags().Float64Var(&f.maxScale, "max-scale", 0, "zoom upper bound (default 7)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
}

// options merges the set flags over the configured diagram options.
func (f *renderFlags) options(cmd *cobra.Command, base pipeline.Options) (pipeline.Options, error) {
	opts := base
	fl := cmd.Flags()
	opts.ShowAuxiliary = f.showAux
	if fl.Changed("engine") {
		opts.Engine = f.engine
	}
	if fl.Changed("theme") {
		opts.Theme = f.theme
	}
	if fl.Changed("width") {
		opts.Width = f.width
	}
	if fl.Changed("height") {
		opts.Height = f.height
	}
	if fl.Changed("max-scale") {
		opts.MaxScale = f.maxScale
	}
	if err := opts.ValidateForRender(); err != nil {
		return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid render flags")
	}
	opts.Logger = nil
	return opts, nil
}

// renderCommand draws one pathway, either from a graph file or fetched
// from the backend.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		flags    renderFlags
		jobID    string
		resultID string
	)

	cmd := &cobra.Command{
		Use:   "render [graph.json]",
		Short: "Render a pathway to an interactive SVG",
		Long: `Render a pathway to an interactive SVG.

With a file argument the graph is read from disk and no backend is needed.
With --job and --result the graph is fetched from the backend. Both paths
cache the rendered diagram.`,
		Example: `  pathview render rp_1_1.json
  pathview render --job 0f2c6a1e-... --result rp_1_1 --aux -o pathway.svg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd, c.Config.RenderOptions())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return c.runRenderFile(cmd.Context(), args[0], opts, &flags)
			}
			if jobID == "" || resultID == "" {
				return errors.New(errors.ErrCodeInvalidInput, "give a graph file or both --job and --result")
			}
			opts.JobID, opts.ResultID = jobID, resultID
			return c.runRenderRemote(cmd.Context(), opts, &flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&jobID, "job", "", "job id to fetch the result from")
	cmd.Flags().StringVar(&resultID, "result", "", "result id within the job")

	return cmd
}

func (c *CLI) runRenderFile(ctx context.Context, path string, opts pipeline.Options, flags *renderFlags) error {
	prog := newProgress(c.Logger)
	g, err := pathway.ReadFile(path)
	if err != nil {
		return err
	}
	c.Logger.Debug("loaded graph", "file", path, "nodes", len(g.Nodes), "links", len(g.Links))

	runner, err := c.newRunner(ctx, nil, flags.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	res, err := runner.RenderGraph(ctx, g, opts)
	if err != nil {
		return err
	}
	out := flags.output
	if out == "" {
		out = strings.TrimSuffix(path, filepath.Ext(path)) + ".svg"
	}
	if err := writeOutput(out, res.SVG); err != nil {
		return err
	}
	prog.done("Rendered " + path)
	report(out, res)
	return nil
}

func (c *CLI) runRenderRemote(ctx context.Context, opts pipeline.Options, flags *renderFlags) error {
	client, err := c.newClient()
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, client, flags.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spin := newSpinner(ctx, fmt.Sprintf("Fetching %s/%s", shortID(opts.JobID), opts.ResultID)).Start()
	res, err := runner.Execute(ctx, opts)
	spin.Stop()
	if err != nil {
		return err
	}
	out := flags.output
	if out == "" {
		out = res.Filename
	}
	if err := writeOutput(out, res.SVG); err != nil {
		return err
	}
	report(out, res)
	return nil
}

func report(out string, res *pipeline.Result) {
	if out == "-" {
		return
	}
	printSuccess("Generated %s", res.Filename)
	printFile(out)
	printStats(res.Stats, res.CacheInfo.RenderHit)
}

// writeOutput writes data to path, or to stdout when path is "-".
func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
