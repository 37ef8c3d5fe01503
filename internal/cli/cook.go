package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/chazu/procmesh/pkg/mesh"
	"github.com/chazu/procmesh/pkg/observability"
	"github.com/chazu/procmesh/pkg/observability/prom"
)

type cookOpts struct {
	node    string
	output  int
	obj     string
	metrics bool
}

func (c *CLI) cookCommand() *cobra.Command {
	var opts cookOpts
	cmd := &cobra.Command{
		Use:   "cook FILE",
		Short: "Cook a node and report the resulting mesh",
		Long: `Cook loads a graph description and cooks one output of a node, by default
output 0 of the node the description marks as its output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCook(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.node, "node", "n", "", "node to cook (default: declared output)")
	cmd.Flags().IntVar(&opts.output, "output", 0, "output slot to cook")
	cmd.Flags().StringVar(&opts.obj, "obj", "", "write the mesh as Wavefront OBJ (- for stdout)")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "print cook metrics")
	return cmd
}

func (c *CLI) runCook(cmd *cobra.Command, path string, opts cookOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	var reg *prometheus.Registry
	if opts.metrics {
		reg = prometheus.NewRegistry()
		prom.Install(reg)
		defer observability.Reset()
	}

	res, err := c.load(ctx, path)
	if err != nil {
		return err
	}
	n, err := target(res, opts.node)
	if err != nil {
		return err
	}
	if opts.output < 0 || opts.output >= n.NumOutputs() {
		return fmt.Errorf("node %s has %d outputs, cannot cook output %d", n.Name(), n.NumOutputs(), opts.output)
	}

	prog := newProgress(logger)
	m, err := n.Cook(ctx, opts.output)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Cooked %s", n.Name()))
	if m == nil {
		printWarning(c.Out, "%s output %d produced no mesh", n.Name(), opts.output)
		return nil
	}

	printSummary(c.Out, n.Name(), m)

	if opts.obj != "" {
		if err := writeOBJ(c.Out, opts.obj, m); err != nil {
			return err
		}
		if opts.obj != "-" {
			printFile(c.Out, opts.obj)
		}
	}
	if reg != nil {
		return printMetrics(c.Out, reg)
	}
	return nil
}

func printSummary(w io.Writer, name string, m *mesh.Mesh) {
	printTitle(w, name)
	printKeyValue(w, "points", fmt.Sprint(m.NumPoints()))
	printKeyValue(w, "vertices", fmt.Sprint(m.NumVertices()))
	printKeyValue(w, "primitives", fmt.Sprint(m.NumPrimitives()))
	if lo, hi, ok := m.BoundingBox(); ok {
		printKeyValue(w, "bounds", fmt.Sprintf("(%g, %g, %g) - (%g, %g, %g)", lo[0], lo[1], lo[2], hi[0], hi[1], hi[2]))
	}
	if m.NumPrimitives() > 0 {
		hes := m.ComputeHalfEdges()
		printKeyValue(w, "half-edges", fmt.Sprint(len(hes)))
		printKeyValue(w, "boundary", fmt.Sprint(mesh.BoundaryCount(hes)))
	}
	printKeyValue(w, "point attrs", strings.Join(m.PointAttribs.Names(), ", "))
}

func writeOBJ(stdout io.Writer, path string, m *mesh.Mesh) error {
	if path == "-" {
		return mesh.WriteOBJ(stdout, m)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create obj: %w", err)
	}
	if err := mesh.WriteOBJ(f, m); err != nil {
		f.Close()
		return fmt.Errorf("write obj: %w", err)
	}
	return f.Close()
}

// printMetrics prints every counter and histogram sample in reg.
func printMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	printTitle(w, "metrics")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName() + labelString(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				printDetail(w, "%s %g", key, m.GetCounter().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				printDetail(w, "%s count=%d sum=%.6f", key, h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	return nil
}

func labelString(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l.GetName() + "=" + l.GetValue()
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}
