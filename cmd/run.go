package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/packwright/packwright/internal/cmdrunner"
	"github.com/packwright/packwright/internal/operations/artifact"
	"github.com/packwright/packwright/internal/operations/github"
	"github.com/packwright/packwright/internal/pipeline"
	"github.com/packwright/packwright/internal/steps"
	"github.com/packwright/packwright/internal/trigger"
	"github.com/packwright/packwright/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	pipelineFile string
	pushedRef    string
	dryRun       bool
	workers      int
)

var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline for a pushed ref",
	Long:  `Run the pipeline when the pushed ref is a tag matching a trigger pattern. A non-matching ref is not an error, the pipeline simply does not fire.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd.Context())
	},
}

func runPipeline(parent context.Context) error {
	log := logger.NewLogger("main")

	pl, err := pipeline.Load(pipelineFile)
	if err != nil {
		return err
	}

	tag, fire := trigger.ShouldFire(pushedRef, pl.Trigger.Tags)
	if !fire {
		log.Infof("Ref %s does not match any trigger pattern, nothing to do", pushedRef)
		return nil
	}

	runID := uuid.New().String()
	log.WithFields(logger.Fields{
		"pipeline": pl.Name,
		"tag":      tag,
		"run_id":   runID,
	}).Info("Pipeline triggered")

	services := &steps.Services{
		Runner:  cmdrunner.NewCommandsRunner(),
		App:     pl.Name,
		Tag:     tag,
		Version: trigger.Version(tag),
		DistDir: Cfg.Build.DistDir,
	}

	if Cfg.GitHub.Owner != "" && Cfg.GitHub.Repo != "" && Cfg.GitHub.Token != "" {
		client, err := github.NewClient(github.Config{
			APIBase:    Cfg.GitHub.APIBase,
			UploadBase: Cfg.GitHub.UploadBase,
			Owner:      Cfg.GitHub.Owner,
			Repo:       Cfg.GitHub.Repo,
			Token:      Cfg.GitHub.Token,
			Timeout:    Cfg.GitHub.Timeout,
		})
		if err != nil {
			return err
		}
		services.Release = client
	} else {
		log.Warn("Release publishing not configured, publish-release steps will fail")
	}

	registry := steps.NewRegistry(services)
	if err := pl.Validate(registry.Actions()); err != nil {
		return err
	}

	if dryRun {
		return printPlan(pl, tag)
	}

	store, err := artifact.NewStore(Cfg.Artifacts.Root, runID)
	if err != nil {
		return err
	}
	services.Artifacts = store

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerCount := workers
	if workerCount <= 0 {
		workerCount = Cfg.Build.Workers
	}

	executor := pipeline.NewExecutor(pl, registry, workerCount)
	result, err := executor.Run(ctx, runID, tag)
	if err != nil {
		return err
	}

	printSummary(result)
	if result.Failed() {
		return fmt.Errorf("pipeline run failed")
	}
	return nil
}

// printPlan prints what a run would execute, without executing anything
func printPlan(pl *pipeline.Pipeline, tag string) error {
	order, err := pl.ExecutionOrder()
	if err != nil {
		return err
	}

	fmt.Printf("Pipeline %s would run for tag %s:\n", pl.Name, tag)
	for _, name := range order {
		job := pl.Job(name)
		entries, err := job.Expand()
		if err != nil {
			return err
		}
		fmt.Printf("  job %s (%d steps)\n", name, len(job.Steps))
		for _, entry := range entries {
			fmt.Printf("    - %s\n", entry.Slug())
		}
	}
	return nil
}

// printSummary prints the per-job outcome of a finished run
func printSummary(result *pipeline.RunResult) {
	fmt.Printf("\nRun %s (%s) finished in %s\n", result.RunID, result.Tag, result.Duration.Round(time.Millisecond))
	for _, job := range result.Jobs {
		fmt.Printf("  %-10s %s\n", job.Status, job.Name)
		for _, entry := range job.Entries {
			for _, step := range entry.Steps {
				line := fmt.Sprintf("    %-10s %s / %s", step.Status, entry.Entry.Slug(), step.Name)
				if step.Error != "" {
					line += ": " + step.Error
				}
				fmt.Println(line)
			}
		}
	}
}

func init() {
	RunCmd.Flags().StringVarP(&pipelineFile, "file", "f", "packwright.yaml", "pipeline definition file")
	RunCmd.Flags().StringVar(&pushedRef, "ref", "", "pushed ref (refs/tags/v1.2.3 or a bare tag)")
	RunCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the execution plan without running")
	RunCmd.Flags().IntVar(&workers, "workers", 0, "max concurrent jobs (default from config)")
	_ = RunCmd.MarkFlagRequired("ref")

	RootCmd.AddCommand(RunCmd)
}
