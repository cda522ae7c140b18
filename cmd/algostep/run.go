package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dshills/algostep-go/viz"
	"github.com/dshills/algostep-go/viz/emit"
	"github.com/dshills/algostep-go/viz/playback"
	"github.com/dshills/algostep-go/viz/store"
)

var runCmd = &cobra.Command{
	Use:   "run <algorithm>",
	Short: "play an algorithm over a dataset or graph",
	Long: `Play an algorithm step by step. Sorts and tree algorithms read
--values or the config's values; bfs and dfs read the config's graph.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

var replayCmd = &cobra.Command{
	Use:   "replay <run-id>",
	Short: "play an archived run again",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "list archived runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

// session is a Visualizer wired to the command line's output, archive and
// metrics.
type session struct {
	v        *viz.Visualizer
	archive  store.Store
	registry *prometheus.Registry
	out      io.Writer
}

func newSession(out, errOut io.Writer, archive string, stream bool, d time.Duration) (*session, error) {
	s := &session{registry: prometheus.NewRegistry(), out: out}

	opts := []viz.Option{
		viz.WithMetrics(playback.NewMetrics(s.registry)),
		viz.WithStreaming(stream),
	}
	switch eventFormat {
	case "none", "":
	case "text", "json":
		opts = append(opts, viz.WithEmitter(emit.NewLogEmitter(errOut, eventFormat == "json")))
	default:
		return nil, fmt.Errorf("unknown event format %q (want none, text or json)", eventFormat)
	}
	if d > 0 {
		opts = append(opts, viz.WithInterval(d))
	}
	if archive != "" {
		a, err := store.NewSQLiteStore(archive)
		if err != nil {
			return nil, err
		}
		s.archive = a
		opts = append(opts, viz.WithArchive(a))
	}

	v, err := viz.New(opts...)
	if err != nil {
		s.close()
		return nil, err
	}
	s.v = v
	return s, nil
}

// play subscribes the frame printer, runs start and waits for the run to
// finish or for an interrupt, which stops it.
func (s *session) play(start func() (string, error)) (string, error) {
	p := &printer{w: s.out}
	unsubscribe := s.v.Subscribe(p.frame)
	defer unsubscribe()

	id, err := start()
	if err != nil {
		return "", err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := s.v.Wait(ctx); err != nil {
		s.v.Stop()
	}
	fmt.Fprintf(s.out, "run %s %s\n", id, s.v.State())
	return id, nil
}

func (s *session) finish(alg string) error {
	if showChart {
		if cur, ok := s.v.CurrentStep(); ok && cur.Snapshot.Order == nil && cur.Snapshot.Node == "" {
			if plot := chart(cur.Snapshot.Values, alg); plot != "" {
				fmt.Fprintln(s.out, plot)
			}
		}
	}
	if showMetrics {
		return writeMetrics(s.out, s.registry)
	}
	return nil
}

func (s *session) close() {
	if s.v != nil {
		s.v.Close()
	}
	if s.archive != nil {
		s.archive.Close()
	}
}

// resolve merges the config file with the command line. Flags win.
func resolve(args []string) (*Config, error) {
	cfg := &Config{}
	if configPath != "" {
		var err error
		if cfg, err = loadConfig(configPath); err != nil {
			return nil, err
		}
	}
	if len(args) > 0 {
		cfg.Algorithm = args[0]
	}
	if valuesFlag != "" {
		cfg.Values = parseValues(valuesFlag)
	}
	if interval > 0 {
		cfg.Interval = interval.String()
	}
	if streaming {
		cfg.Stream = true
	}
	if archivePath != "" {
		cfg.Archive = archivePath
	}
	if cfg.Algorithm == "" {
		return nil, fmt.Errorf("no algorithm given (see algostep algorithms)")
	}
	return cfg, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := resolve(args)
	if err != nil {
		return err
	}
	alg, err := viz.ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return err
	}
	d, err := cfg.interval()
	if err != nil {
		return err
	}

	s, err := newSession(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Archive, cfg.Stream, d)
	if err != nil {
		return err
	}
	defer s.close()

	s.v.SubmitDataset(cfg.Values)
	if cfg.Graph != nil {
		s.v.SubmitGraph(*cfg.Graph)
	}
	if _, err := s.play(func() (string, error) { return s.v.Run(alg, 0) }); err != nil {
		return err
	}

	if showTable {
		if seq := s.v.Sequence(); seq != nil {
			writeSteps(s.out, seq, alg.Pseudocode(), s.v.Position())
		}
	}
	return s.finish(alg.String())
}

func runReplay(cmd *cobra.Command, args []string) error {
	if archivePath == "" {
		return fmt.Errorf("replay needs --archive")
	}
	s, err := newSession(cmd.OutOrStdout(), cmd.ErrOrStderr(), archivePath, false, interval)
	if err != nil {
		return err
	}
	defer s.close()

	run, err := s.archive.Load(context.Background(), args[0])
	if err != nil {
		return err
	}
	if _, err := s.play(func() (string, error) {
		return s.v.Replay(context.Background(), run.ID, 0)
	}); err != nil {
		return err
	}
	return s.finish(run.Algorithm)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if archivePath == "" {
		return fmt.Errorf("history needs --archive")
	}
	archive, err := store.NewSQLiteStore(archivePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	runs, err := archive.List(context.Background())
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"id", "algorithm", "steps", "truncated", "created"})
	for _, r := range runs {
		table.Append([]string{
			r.ID,
			r.Algorithm,
			strconv.Itoa(r.Steps),
			strconv.FormatBool(r.Truncated),
			r.CreatedAt.Format(time.RFC3339),
		})
	}
	table.Render()
	return nil
}
