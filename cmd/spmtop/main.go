// spmtop is a real-time terminal monitor for a running spmd instance.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kestrelfw/spm/internal/tui"
)

func main() {
	fs := flag.NewFlagSet("spmtop", flag.ExitOnError)
	apiURL := fs.String("api-url", "http://localhost:8080", "spmd API URL")
	apiKey := fs.String("api-key", os.Getenv("SPMD_API_KEY"), "API Bearer Token")
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		os.Exit(1)
	}

	if *apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: API key required. Use --api-key or SPMD_API_KEY env var.")
		os.Exit(1)
	}

	m := tui.NewMonitor(*apiURL, *apiKey)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		os.Exit(1)
	}
}
