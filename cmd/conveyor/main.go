// Package main implements the conveyor CLI for running board CI pipelines.
package main

import (
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/spf13/cobra"

	"github.com/conveyor-ci/conveyor/artifact"
	"github.com/conveyor-ci/conveyor/artifact/local"
	"github.com/conveyor-ci/conveyor/artifact/minio"
	"github.com/conveyor-ci/conveyor/config"
	"github.com/conveyor-ci/conveyor/logging"
	"github.com/conveyor-ci/conveyor/pipeline"
	"github.com/conveyor-ci/conveyor/publish"
	"github.com/conveyor-ci/conveyor/runner"
	"github.com/conveyor-ci/conveyor/tag"
)

var version = "dev"

var (
	configPath string
	revision   string
	branch     string
	isCI       bool
	dryRun     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "conveyor",
	Short:   "Staged CI pipeline for hardware design repositories",
	Long:    `conveyor validates a board revision, exports its artifact bundle, and publishes a tagged release when every check passes.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline for one revision",
	Long: `Run the full pipeline for one revision of the design.

Examples:
  # Run for the current HEAD of a checkout
  conveyor run --revision $(git rev-parse HEAD) --branch main

  # Validate only, without exporting or publishing
  conveyor run --revision $(git rev-parse HEAD) --branch main --dry-run`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&revision, "revision", "", "full revision identifier of the change (required)")
	runCmd.Flags().StringVar(&branch, "branch", "", "branch that triggered the run (required)")
	runCmd.Flags().BoolVar(&isCI, "ci", false, "mark the run as a CI environment run")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "run validation only and report the gate decision")
	_ = runCmd.MarkFlagRequired("revision")
	_ = runCmd.MarkFlagRequired("branch")
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := cmd.Context()

	store, err := buildStore(cfg)
	if err != nil {
		return err
	}

	history, reserver, err := buildTagStore(cfg)
	if err != nil {
		return err
	}

	publisher, err := publish.NewGitHubPublisher(ctx, cfg.Publisher.Token, cfg.Publisher.Owner, cfg.Publisher.Repo)
	if err != nil {
		return err
	}

	var images publish.ImageHost
	if cfg.Images.Endpoint != "" {
		images = publish.NewHTTPImageHost(cfg.Images.Endpoint, cfg.Images.Token)
	}

	opts := pipeline.Options{
		Scheme: tag.Scheme{
			Prefix: cfg.Tags.Prefix,
			Width:  cfg.Tags.Width,
		},
		TagRetries:   cfg.Tags.Retries,
		Draft:        cfg.Publisher.Draft,
		Prerelease:   cfg.Publisher.Prerelease,
		Timeout:      cfg.ToolTimeout,
		ValidateOnly: dryRun,
	}
	for _, check := range cfg.Checks {
		opts.Checks = append(opts.Checks, pipeline.ValidationCheck{
			Invocation: check.Tool.Invocation(),
			Kind:       check.Kind,
			JSONReport: check.JSON,
		})
	}
	for _, export := range cfg.Exports {
		opts.Exports = append(opts.Exports, pipeline.ExportJob{
			Invocation: export.Tool.Invocation(),
			Category:   export.Category,
		})
	}
	if cfg.PostProcess != nil {
		inv := cfg.PostProcess.Invocation()
		opts.PostProcess = &inv
	}

	p := pipeline.New(runner.New(), store, history, reserver, publisher, images, log, opts)

	summary, res, err := p.Run(ctx, pipeline.Trigger{
		Revision: revision,
		Branch:   branch,
		IsCI:     isCI,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, name := range summary.StageNames() {
		fmt.Fprintf(out, "%-14s %s\n", name, summary.Stages[name])
		if reason := res.Err(name); reason != nil {
			fmt.Fprintf(out, "%-14s   %v\n", "", reason)
		}
	}
	if summary.Decision != nil {
		fmt.Fprintf(out, "\ngate: ")
		if summary.Decision.Proceed {
			fmt.Fprintln(out, "open")
		} else {
			fmt.Fprintln(out, "closed")
		}
		for name, count := range summary.Decision.Counters {
			fmt.Fprintf(out, "  %s: %d\n", name, count)
		}
	}

	if summary.Failed() {
		return fmt.Errorf("run %s finished with failed stages", summary.RunID)
	}
	return nil
}

func buildStore(cfg *config.Config) (artifact.Store, error) {
	switch cfg.Artifacts.Backend {
	case "s3":
		return minio.NewStore(minio.Config{
			Endpoint:  cfg.Artifacts.S3.Endpoint,
			AccessKey: cfg.Artifacts.S3.AccessKey,
			SecretKey: cfg.Artifacts.S3.SecretKey,
			UseSSL:    cfg.Artifacts.S3.UseSSL,
			Bucket:    cfg.Artifacts.S3.Bucket,
			Prefix:    cfg.Artifacts.S3.Prefix,
		})
	default:
		if err := os.MkdirAll(cfg.Artifacts.Root, 0o755); err != nil {
			return nil, fmt.Errorf("creating artifact root: %w", err)
		}
		return local.NewOSStore(cfg.Artifacts.Root), nil
	}
}

func buildTagStore(cfg *config.Config) (tag.HistorySource, tag.Reserver, error) {
	if cfg.Tags.Repo == "" {
		mem := tag.NewMemoryStore()
		return mem, mem, nil
	}
	repo, err := git.PlainOpen(cfg.Tags.Repo)
	if err != nil {
		return nil, nil, fmt.Errorf("opening tag repository %s: %w", cfg.Tags.Repo, err)
	}
	gs := tag.NewGitStore(repo)
	return gs, gs, nil
}
