package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/cubescan/internal/config"
	"github.com/example/cubescan/internal/facecolor"
	"github.com/example/cubescan/internal/imagesource"
	"github.com/example/cubescan/internal/logging"
	"github.com/example/cubescan/internal/solver"
	"github.com/example/cubescan/internal/solverrpc"
)

// Version is the application version.
const Version = "0.1.0"

// app carries what PersistentPreRunE loads for the subcommands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:          "cubescan",
		Short:        "Rubik's Cube face scanner and solver",
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = a.logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.LogFormat = a.logFormat
			}
			logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return fmt.Errorf("failed to initialise logger: %w", err)
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format, json or console (overrides LOG_FORMAT)")

	rootCmd.AddCommand(
		newServeCmd(a),
		newClassifyCmd(a),
		newSolveCmd(a),
		newSolverServeCmd(a),
	)
	return rootCmd
}

func newServeCmd(a *app) *cobra.Command {
	var (
		httpAddr string
		grpcAddr string
		store    string
		mode     string
		withGRPC bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			flags := cmd.Flags()
			if flags.Changed("http-addr") {
				cfg.HTTPAddr = httpAddr
			}
			if flags.Changed("grpc-addr") {
				cfg.GRPCAddr = grpcAddr
			}
			if flags.Changed("store") {
				cfg.StoreBackend = strings.ToLower(store)
			}
			if flags.Changed("solver") {
				cfg.SolverMode = strings.ToLower(mode)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if withGRPC && cfg.SolverMode == config.SolverRemote {
				return errors.New("--grpc needs the local solver")
			}
			return runServe(cmd.Context(), &cfg, a.logger, withGRPC)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "solver RPC listen address (overrides GRPC_ADDR)")
	cmd.Flags().StringVar(&store, "store", "", "face store backend, memory or redis (overrides STORE_BACKEND)")
	cmd.Flags().StringVar(&mode, "solver", "", "solver mode, local or remote (overrides SOLVER_MODE)")
	cmd.Flags().BoolVar(&withGRPC, "grpc", false, "also serve the solver over gRPC")
	return cmd
}

// classification is the outcome for one input file.
type classification struct {
	Path  string
	Scans []facecolor.Scan
	Err   error
}

func newClassifyCmd(a *app) *cobra.Command {
	var (
		strategy string
		workers  int
	)
	cmd := &cobra.Command{
		Use:   "classify [--strategy lab|hsv|both] FILE...",
		Short: "Classify the stickers of one or more face photos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strategy == "" {
				strategy = a.cfg.ClassifierStrategy
			}
			classifiers, err := classifiersFor(strategy, a.cfg.CanonicalSize)
			if err != nil {
				return err
			}

			results, err := classifyFiles(cmd.Context(), args, classifiers, imagesource.Decoder{MaxPixels: a.cfg.MaxImagePixels}, workers, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			failed := writeClassifications(cmd.OutOrStdout(), results, a.cfg.LowConfidence)
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be classified", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "", "color strategy: lab, hsv or both (overrides CLASSIFIER_STRATEGY)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "number of files classified in parallel")
	return cmd
}

func classifiersFor(strategy string, canonicalSize int) ([]*facecolor.Classifier, error) {
	names := []string{strings.ToLower(strategy)}
	if names[0] == "both" {
		names = []string{facecolor.StrategyPerceptual, facecolor.StrategyHue}
	}
	classifiers := make([]*facecolor.Classifier, 0, len(names))
	for _, name := range names {
		s, err := facecolor.StrategyByName(name)
		if err != nil {
			return nil, err
		}
		classifiers = append(classifiers, facecolor.New(s, facecolor.WithCanonicalSize(canonicalSize)))
	}
	return classifiers, nil
}

// classifyFiles decodes and classifies every path with each classifier.
// Per-file failures are reported in the result; only cancellation aborts.
func classifyFiles(ctx context.Context, paths []string, classifiers []*facecolor.Classifier, decoder imagesource.Decoder, workers int, progress io.Writer) ([]classification, error) {
	if workers < 1 {
		workers = 1
	}
	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Classifying"),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowCount(),
	)

	results := make([]classification, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = classifyFile(path, classifiers, decoder)
			_ = bar.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	_ = bar.Finish()
	fmt.Fprintln(progress)
	return results, nil
}

func classifyFile(path string, classifiers []*facecolor.Classifier, decoder imagesource.Decoder) classification {
	out := classification{Path: path}
	raw, err := os.ReadFile(path)
	if err != nil {
		out.Err = err
		return out
	}
	decoded, err := decoder.Decode(raw)
	if err != nil {
		out.Err = err
		return out
	}
	for _, c := range classifiers {
		out.Scans = append(out.Scans, c.Classify(decoded.Image))
	}
	return out
}

// writeClassifications prints one row per file and strategy and returns the
// number of files that failed.
func writeClassifications(w io.Writer, results []classification, lowConfidence float64) int {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSTRATEGY\tCOLORS\tMIN CONFIDENCE\tLOW")
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(tw, "%s\t-\t-\t-\t%v\n", r.Path, r.Err)
			continue
		}
		for _, s := range r.Scans {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%v\n", r.Path, s.Strategy, s.Grid, s.MinConfidence(), s.LowConfidence(lowConfidence))
		}
	}
	_ = tw.Flush()
	return failed
}

func newSolveCmd(a *app) *cobra.Command {
	var (
		remote   string
		scramble string
		maxDepth int
		timeout  time.Duration
		verify   bool
	)
	cmd := &cobra.Command{
		Use:   "solve [FACELETS]",
		Short: "Solve a cube given as a 54 character facelet string",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var facelets string
			if len(args) == 1 {
				facelets = strings.ToUpper(strings.TrimSpace(args[0]))
			}
			if scramble != "" {
				if facelets != "" {
					return errors.New("pass either FACELETS or --scramble, not both")
				}
				scrambled, err := solver.Apply(solver.Solved, scramble)
				if err != nil {
					return err
				}
				facelets = scrambled
			}
			if facelets == "" {
				return errors.New("a facelet string or --scramble is required")
			}
			if !cmd.Flags().Changed("max-depth") {
				maxDepth = a.cfg.SolverMaxDepth
			}
			if !cmd.Flags().Changed("timeout") {
				timeout = a.cfg.SolverTimeout
			}

			ctx := cmd.Context()
			var s solver.Solver
			if remote != "" {
				client, err := solverrpc.Dial(remote, a.logger)
				if err != nil {
					return err
				}
				defer client.Close()
				s = client
			} else {
				local := solver.NewLocal(solver.WithMaxDepth(maxDepth), solver.WithLogger(a.logger.Named("solver")))
				if err := local.Warm(ctx); err != nil {
					return err
				}
				s = local
			}

			solveCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			start := time.Now()
			solution, err := s.Solve(solveCtx, facelets)
			if err != nil {
				return err
			}
			a.logger.Debug("solve finished", zap.Duration("elapsed", time.Since(start)))

			if verify {
				solved, err := solver.Apply(facelets, solution)
				if err != nil {
					return err
				}
				if solved != solver.Solved {
					return fmt.Errorf("solution %q does not solve %s", solution, facelets)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), solution)
			return nil
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "address of a solver RPC server; solves locally when empty")
	cmd.Flags().StringVar(&scramble, "scramble", "", "solve the cube reached by this move sequence from solved")
	cmd.Flags().IntVar(&maxDepth, "max-depth", solver.DefaultMaxDepth, "maximum solution length (overrides SOLVER_MAX_DEPTH)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "search time limit (overrides SOLVER_TIMEOUT)")
	cmd.Flags().BoolVar(&verify, "verify", false, "check the solution by applying it before printing")
	return cmd
}

func newSolverServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "solver-serve",
		Short: "Serve the cube solver over gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = a.cfg.GRPCAddr
			}
			ctx := cmd.Context()
			local := solver.NewLocal(solver.WithMaxDepth(a.cfg.SolverMaxDepth), solver.WithLogger(a.logger.Named("solver")))
			if err := local.Warm(ctx); err != nil {
				return err
			}

			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return logging.NewOperationError("main.listen_grpc", "", err)
			}
			return solverrpc.Serve(ctx, lis, local, a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides GRPC_ADDR)")
	return cmd
}
