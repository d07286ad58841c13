package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/deptree/pkg/deptree"
	deperrors "github.com/matzehuels/deptree/pkg/errors"
	"github.com/matzehuels/deptree/pkg/manifest"
	"github.com/matzehuels/deptree/pkg/render"
)

// Output formats for resolve.
const (
	FormatTree = "tree"
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
)

var validFormats = []string{FormatTree, FormatJSON, FormatDOT, FormatSVG, FormatPNG, FormatPDF}

// inputFlags are the flags shared by resolve and browse.
type inputFlags struct {
	manifest    string
	dev         []string
	peer        []string
	maxDepth    int
	concurrency int
	noCache     bool
	registry    string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.manifest, "manifest", "m", "", "read root packages from a package.json")
	cmd.Flags().StringSliceVar(&f.dev, "dev", nil, "root packages to resolve as dev dependencies (name@version)")
	cmd.Flags().StringSliceVar(&f.peer, "peer", nil, "root packages to resolve as peer dependencies (name@version)")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", 0, "deepest level to expand (default from config, 3)")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "parallel registry lookups per node (default from config, 8)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the metadata cache")
	cmd.Flags().StringVar(&f.registry, "registry", "", "npm registry base URL")
}

// apply copies explicitly set flags over the loaded configuration.
func (f *inputFlags) apply(cfg *Config) error {
	if f.maxDepth > 0 {
		cfg.Resolve.MaxDepth = f.maxDepth
	}
	if f.concurrency > 0 {
		cfg.Resolve.Concurrency = f.concurrency
	}
	if f.registry != "" {
		cfg.Registry.URL = f.registry
	}
	return cfg.Validate()
}

// requests collects roots from the manifest, positional arguments and the
// --dev/--peer flags, in that order.
func (f *inputFlags) requests(args []string) ([]deptree.Request, error) {
	var reqs []deptree.Request
	if f.manifest != "" {
		m, err := manifest.ReadFile(f.manifest)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, m.Requests...)
	}
	for _, group := range []struct {
		args          []string
		isDev, isPeer bool
	}{
		{args, false, false},
		{f.dev, true, false},
		{f.peer, false, true},
	} {
		rs, err := manifest.ParseSpecs(group.args, group.isDev, group.isPeer)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, rs...)
	}
	if len(reqs) == 0 {
		return nil, deperrors.New(deperrors.ErrCodeInvalidInput, "no packages given: pass name@version arguments or --manifest")
	}
	return reqs, nil
}

// build resolves the requested roots with a spinner on stderr.
func (c *CLI) build(ctx context.Context, f *inputFlags, reqs []deptree.Request) ([]*deptree.Node, error) {
	client, err := c.newRegistry(ctx, f.noCache)
	if err != nil {
		return nil, err
	}
	defer client.Cache().Close()

	sp := newSpinner(ctx, os.Stderr, fmt.Sprintf("Resolving %d package(s)...", len(reqs)))
	sp.Start()
	forest := c.newBuilder(client).Build(ctx, reqs)
	sp.Stop()
	c.Logger.Debug("resolution finished", "roots", len(forest), "elapsed", sp.Elapsed())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return forest, nil
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	var (
		in     inputFlags
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "resolve [name@version ...]",
		Short: "Resolve dependency trees for npm packages",
		Long: `Resolve the dependency tree of one or more npm packages.

Packages are given as name@version; a bare name resolves the latest version.
Dependencies are expanded three levels deep by default. Packages already on
the current path are marked circular instead of being expanded again.`,
		Example: `  deptree resolve express@4.18.2
  deptree resolve @babel/core@7.24.0 --format json -o tree.json
  deptree resolve --manifest package.json --format svg -o deps.svg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := in.apply(c.Config()); err != nil {
				return err
			}
			if !validFormat(format) {
				return deperrors.New(deperrors.ErrCodeInvalidFormat, "unknown format %q (want one of %v)", format, validFormats)
			}
			reqs, err := in.requests(args)
			if err != nil {
				return err
			}

			prog := newProgress(c.Logger)
			forest, err := c.build(cmd.Context(), &in, reqs)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Resolved %d of %d root package(s)", len(forest), len(reqs)))

			data, err := encode(cmd.Context(), forest, format)
			if err != nil {
				return err
			}
			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Wrote %s", format)
			printFile(output)
			printStats(deptree.Collect(forest))
			if len(args) > 0 {
				printNextStep("Explore interactively", appName+" browse "+strings.Join(args, " "))
			}
			return nil
		},
	}

	in.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", FormatTree, "output format: tree, json, dot, svg, png, pdf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return validFormats, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func validFormat(f string) bool {
	return slices.Contains(validFormats, f)
}

// encode renders forest in the requested format.
func encode(ctx context.Context, forest []*deptree.Node, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(forest, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatDOT:
		return []byte(render.ToDOT(forest, render.Options{})), nil
	case FormatSVG, FormatPNG, FormatPDF:
		svg, err := render.RenderSVG(ctx, render.ToDOT(forest, render.Options{}))
		if err != nil || format == FormatSVG {
			return svg, err
		}
		if format == FormatPNG {
			return render.ToPNG(ctx, svg, 2.0)
		}
		return render.ToPDF(ctx, svg)
	default:
		if len(forest) == 0 {
			return []byte(StyleDim.Render("no packages could be resolved") + "\n"), nil
		}
		return []byte(renderForest(forest)), nil
	}
}
