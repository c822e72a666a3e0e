package cmd

import (
	"fmt"
	"os"

	"github.com/packwright/packwright/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	Cfg     *config.Config
	Version string
)

var RootCmd = &cobra.Command{
	Use:   "packwright",
	Short: "Packwright - A tag-driven build, package and release pipeline runner",
	Long:  `Packwright runs a release pipeline for pushed version tags: it builds the application for every matrix entry, packages the outputs into archives, and publishes them as release assets.`,
}

func Execute(version string) error {
	Version = version
	return RootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
}

func initConfig() {
	var err error

	Cfg, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Printf("Fatal: Configuration could not be loaded: %v\n", err)
		os.Exit(1)
	}
}
