// log_viewer/main.go

package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// Utility function to get environment variable with a fallback value
func getEnvWithFallback(envVarName, defaultValue string) string {
	val := os.Getenv(envVarName)
	if val == "" {
		return defaultValue
	}
	return val
}

func runProgram(model Model) error {
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
