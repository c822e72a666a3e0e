package cmd

import (
	"fmt"

	"github.com/packwright/packwright/internal/pipeline"
	"github.com/packwright/packwright/internal/steps"
	"github.com/packwright/packwright/internal/trigger"
	"github.com/packwright/packwright/pkg/logger"
	"github.com/spf13/cobra"
)

var validateFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a pipeline definition",
	Long:  `Parse a pipeline definition and run the static checks: job graph, step actions and trigger patterns.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.NewLogger("validate")

		pl, err := pipeline.Load(validateFile)
		if err != nil {
			return err
		}

		if err := trigger.ValidatePatterns(pl.Trigger.Tags); err != nil {
			return err
		}
		if len(pl.Trigger.Tags) == 0 {
			log.Warn("Pipeline has no trigger tag patterns and will never fire")
		}

		registry := steps.NewRegistry(&steps.Services{})
		if err := pl.Validate(registry.Actions()); err != nil {
			return err
		}

		order, err := pl.ExecutionOrder()
		if err != nil {
			return err
		}

		stepCount := 0
		entryCount := 0
		for _, job := range pl.Jobs {
			stepCount += len(job.Steps)
			entries, err := job.Expand()
			if err != nil {
				return err
			}
			entryCount += len(entries)
		}

		fmt.Printf("%s: OK (%d jobs, %d steps, %d matrix entries)\n", validateFile, len(pl.Jobs), stepCount, entryCount)
		fmt.Printf("execution order: %v\n", order)
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "packwright.yaml", "pipeline definition file")

	RootCmd.AddCommand(validateCmd)
}
