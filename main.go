package main

import (
	"github.com/packwright/packwright/cmd"
	"github.com/packwright/packwright/pkg/logger"
)

var version = "1.0.0"

func main() {
	if err := cmd.Execute(version); err != nil {
		logger.Fatalf("Error: %v", err)
	}
}
