package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/procmesh/pkg/graph"
	"github.com/chazu/procmesh/pkg/graphfile"
	"github.com/chazu/procmesh/pkg/preview"
)

func (c *CLI) dotCommand() *cobra.Command {
	var out string
	var svg bool
	cmd := &cobra.Command{
		Use:   "dot FILE",
		Short: "Print the node graph in Graphviz DOT format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := c.load(ctx, args[0])
			if err != nil {
				return err
			}
			data := []byte(res.Graph.ToDOT())
			if svg {
				if data, err = graph.RenderSVG(ctx, string(data)); err != nil {
					return err
				}
			}
			if out == "" {
				_, err = c.Out.Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			printFile(c.Out, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&svg, "svg", false, "render to SVG instead of DOT")
	return cmd
}

func (c *CLI) kindsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the available node kinds and their fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scratch := graph.New(graph.WithRegistry(c.registry))
			for _, k := range c.registry.Kinds() {
				n := scratch.AddNode(k, "")
				printTitle(c.Out, k.Name)
				printDetail(c.Out, "%s (%d in, %d out)", k.Description, k.Inputs, k.Outputs)
				for _, name := range n.FieldNames() {
					f := n.Field(name)
					printKeyValue(c.Out, "  "+name, fmt.Sprintf("%s = %v", f.Type(), f.Get()))
				}
			}
			return nil
		},
	}
}

func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a graph for cycles, dangling connections and naming problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			problems := res.Graph.Validate()
			failed := false
			for _, p := range problems {
				if p.Severity == graph.SeverityError {
					failed = true
					printError(c.Out, "%s", p.Error())
				} else {
					printWarning(c.Out, "%s", p.Error())
				}
			}
			if failed {
				return fmt.Errorf("%s: graph is invalid", args[0])
			}
			printSuccess(c.Out, "%s: %d nodes, no errors", args[0], res.Graph.Len())
			return nil
		},
	}
}

func (c *CLI) exportCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Convert a graph description to TOML, YAML or JSON",
		Long: `Export loads any supported description, including Lisp programs, and
writes the resulting graph as a declarative document with every field value.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			f := graphfile.Format(strings.ToLower(format))
			if err := graphfile.Encode(&buf, graphfile.FromGraph(res.Graph, res.Output), f); err != nil {
				return err
			}
			_, err = c.Out.Write(buf.Bytes())
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "toml", "toml, yaml or json")
	return cmd
}

func (c *CLI) previewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "preview FILE",
		Short: "Print display meshes as JSON render buffers",
		Long: `Preview cooks the declared output node, or every node whose outputs feed
nothing, and prints triangulated vertex, normal and index buffers as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := c.load(ctx, args[0])
			if err != nil {
				return err
			}
			result := preview.New(c.registry, loggerFromContext(ctx)).Cook(ctx, res)
			enc := json.NewEncoder(c.Out)
			if err := enc.Encode(result); err != nil {
				return err
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d display nodes failed to cook", len(result.Errors))
			}
			return nil
		},
	}
}
