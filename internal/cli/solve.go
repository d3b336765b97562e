package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tourplan/internal/model"
	"tourplan/internal/opt"
	"tourplan/internal/planner"
)

const (
	formatText = "text"
	formatJSON = "json"
)

type solveOptions struct {
	passes     int
	timeBudget time.Duration
	restarts   int
	seed       int64
	algorithm  string
	format     string
	output     string
}

// solveCommand creates the "solve" command.
func (c *CLI) solveCommand() *cobra.Command {
	var opts solveOptions
	cmd := &cobra.Command{
		Use:   "solve <problem.json>",
		Short: "Order the stops of a problem file",
		Long: `Solve reads a problem in the POST /v1/optimize request format, either a
cost matrix or a list of points with a travel mode, and prints the visiting
order with its total. Flags override the values in the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSolve(cmd, args[0], opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.passes, "passes", 0, "stop after this many improvement passes per restart")
	f.DurationVar(&opts.timeBudget, "time-budget", 0, "stop improving after this long")
	f.IntVar(&opts.restarts, "restarts", 0, "independent local searches")
	f.Int64Var(&opts.seed, "seed", 0, "seed for restart perturbations")
	f.StringVar(&opts.algorithm, "algorithm", "", "local-search, exact or auto")
	f.StringVarP(&opts.format, "format", "f", formatText, "output format: text or json")
	f.StringVarP(&opts.output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func (c *CLI) runSolve(cmd *cobra.Command, path string, opts solveOptions) error {
	if opts.format != formatText && opts.format != formatJSON {
		return fmt.Errorf("unknown format %q", opts.format)
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	req, err := readProblem(path)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("passes") {
		req.Passes = opts.passes
	}
	if flags.Changed("time-budget") {
		req.TimeBudgetMs = int(opts.timeBudget.Milliseconds())
	}
	if flags.Changed("restarts") {
		req.Restarts = opts.restarts
	}
	if flags.Changed("seed") {
		req.Seed = opts.seed
	}
	if flags.Changed("algorithm") {
		req.Algorithm = opts.algorithm
	}

	p := planner.New(nil, 0, cfg.Optimizer, c.Logger)
	prob, err := p.Prepare(req)
	if err != nil {
		return err
	}
	c.Logger.Info("solving", "stops", prob.Matrix.N(), "start", prob.Constraint.Start, "end", prob.Constraint.End,
		"algorithm", prob.Options.Algorithm)
	rep, _, err := p.Solve(cmd.Context(), prob, func(pi opt.PassInfo) {
		c.Logger.Debug("pass", "restart", pi.Restart, "pass", pi.Pass, "cost", pi.Cost,
			"2opt", pi.TwoOptMoves, "oropt", pi.OrOptMoves)
	})
	if err != nil {
		return err
	}
	c.Logger.Info("solved", "cost", rep.TotalCost, "construction", rep.Stats.ConstructionCost,
		"reason", rep.Stats.Reason, "elapsed", rep.Stats.Elapsed)

	var buf bytes.Buffer
	switch opts.format {
	case formatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		err = enc.Encode(rep)
	default:
		err = writeItinerary(&buf, rep, req.Points)
	}
	if err != nil {
		return err
	}
	if opts.output == "" {
		_, err = io.Copy(cmd.OutOrStdout(), &buf)
		return err
	}
	if err := os.WriteFile(opts.output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	c.Logger.Info("itinerary saved", "path", opts.output)
	return nil
}

func readProblem(path string) (model.OptimizeRequest, error) {
	var req model.OptimizeRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("read problem: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("parse %s: %w", path, err)
	}
	return req, nil
}
