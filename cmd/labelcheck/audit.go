package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"yashubustudio/labelcheck/labelcheck"
)

type auditOptions struct {
	inputOpts     labelcheck.InputParseOptions
	outputPath    string
	outputDir     string
	sqlitePath    string
	metricsFile   string
	minScore      float64
	minScoreSet   bool
	skipUnlabeled bool
	stdout        bool
}

func auditCmd(root *rootOptions) *cobra.Command {
	opts := &auditOptions{}
	cmd := &cobra.Command{
		Use:   "audit INPUT",
		Short: "Score assigned labels and report suspects",
		Long: `Reads a CSV, TSV or text file of labeled examples, clusters them and
writes one review row per example. The output format follows the
extension of --output (.json for JSON, CSV otherwise).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.minScoreSet = cmd.Flags().Changed("min-score")
			if opts.minScoreSet && (opts.minScore < 0 || opts.minScore > 1) {
				return fmt.Errorf("--min-score must be within [0, 1], got %v", opts.minScore)
			}
			return runAudit(cmd, root, opts, strings.TrimSpace(args[0]))
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.inputOpts.IDColumn, "id-column", "", "Column name or #index for example ids")
	f.StringVar(&opts.inputOpts.TitleColumn, "title-column", "", "Column name or #index for the title column")
	f.StringVar(&opts.inputOpts.BodyColumn, "body-column", "", "Column name or #index for the body column")
	f.StringVar(&opts.inputOpts.TextColumn, "text-column", "", "Column name or #index for the fallback text column")
	f.StringVar(&opts.inputOpts.LabelColumn, "label-column", "", "Column name or #index for assigned labels")
	f.StringVar(&opts.outputPath, "output", "", "Result file (.csv or .json, default uses --output-dir/review_*.csv)")
	f.StringVar(&opts.outputDir, "output-dir", "csv", "Directory where results are written when --output is omitted")
	f.StringVar(&opts.sqlitePath, "sqlite", "", "Also store reviews in this SQLite database")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	f.Float64Var(&opts.minScore, "min-score", 0, "Assigned label score below which an example is a suspect (overrides config)")
	f.BoolVar(&opts.skipUnlabeled, "skip-unlabeled", false, "Drop examples without a label instead of failing")
	f.BoolVar(&opts.stdout, "stdout", false, "Print the suspects to STDOUT")
	return cmd
}

func runAudit(cmd *cobra.Command, root *rootOptions, opts *auditOptions, inputPath string) error {
	logger := newLogger(root.logLevel)
	cfg, err := labelcheck.LoadConfig(root.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.minScoreSet {
		cfg = cfg.WithMinScore(opts.minScore)
	}
	labelcheck.SetColumnCandidates(cfg.Input.Columns)

	parseOpts := opts.inputOpts
	parseOpts.IDPrefix = cfg.Input.IDPrefix
	parseOpts.IDScheme = cfg.Input.IDScheme
	parseOpts.LabelSeparator = cfg.Input.LabelSeparator
	examples, err := labelcheck.ParseExampleFile(inputPath, parseOpts)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if opts.skipUnlabeled {
		kept := examples[:0]
		for _, ex := range examples {
			if len(ex.AssignedLabels) > 0 {
				kept = append(kept, ex)
			}
		}
		if dropped := len(examples) - len(kept); dropped > 0 {
			logger.Warn("skipped unlabeled examples", "count", dropped)
		}
		examples = kept
	}
	if len(examples) == 0 {
		return errors.New("input file does not contain any examples")
	}
	store, err := labelcheck.NewStore(examples)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := labelcheck.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	svc, err := newService(cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	reviews, summary, err := svc.Audit(ctx, store)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}

	outputPath, err := resolveOutputPath(opts.outputPath, opts.outputDir)
	if err != nil {
		return err
	}
	if err := writeReviews(outputPath, reviews, summary); err != nil {
		return err
	}
	logger.Info("saved reviews", "path", outputPath)

	if opts.sqlitePath != "" {
		if err := labelcheck.SaveReviewsSQLite(ctx, opts.sqlitePath, reviews); err != nil {
			return fmt.Errorf("save sqlite: %w", err)
		}
		logger.Info("saved sqlite", "path", opts.sqlitePath)
	}
	if opts.metricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.metricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	if opts.stdout {
		printSummary(cmd.OutOrStdout(), reviews, summary)
	}
	return nil
}

func resolveOutputPath(path, dir string) (string, error) {
	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolve output path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
		return absPath, nil
	}
	if dir == "" {
		dir = "csv"
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	filename := fmt.Sprintf("review_%s.csv", time.Now().Format("20060102150405"))
	return filepath.Join(absDir, filename), nil
}

func writeReviews(path string, reviews []labelcheck.Review, summary labelcheck.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = labelcheck.WriteReviewsJSON(f, reviews, summary)
	} else {
		err = labelcheck.WriteReviewsCSV(f, reviews)
	}
	if err != nil {
		return err
	}
	return f.Close()
}

func printSummary(w io.Writer, reviews []labelcheck.Review, summary labelcheck.Summary) {
	fmt.Fprintf(w, "==== suspects: %d of %d (%.1f%%) ====\n",
		summary.Suspects, summary.Examples, summary.SuspectRatio*100)
	n := 0
	for _, r := range reviews {
		if !r.Suspect {
			continue
		}
		n++
		fmt.Fprintf(w, "%d. %s [%s]\n", n, summarizeReview(r), joinIDs(r.Assigned))
		if len(r.Candidates) == 0 {
			fmt.Fprintln(w, "    no candidates")
			continue
		}
		limit := min(3, len(r.Candidates))
		for _, c := range r.Candidates[:limit] {
			fmt.Fprintf(w, "      - %s (score=%.3f)\n", c.ID, c.Score)
		}
	}
	for _, l := range summary.Labels {
		fmt.Fprintf(w, "%-20s count=%d suspects=%d mean=%.3f sd=%.3f\n",
			l.Label, l.Count, l.Suspects, l.MeanScore, l.StdDev)
	}
}

func summarizeReview(r labelcheck.Review) string {
	text := strings.Join(strings.Fields(r.Text), " ")
	if text == "" {
		text = "(empty text)"
	}
	if runes := []rune(text); len(runes) > 60 {
		text = string(runes[:60]) + "…"
	}
	return "#" + r.ID + " " + text
}

func joinIDs(labels []labelcheck.Label) string {
	ids := make([]string, len(labels))
	for i, l := range labels {
		ids[i] = l.ID
	}
	return strings.Join(ids, ", ")
}
