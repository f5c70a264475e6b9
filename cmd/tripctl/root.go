package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shiva/tripplanner/internal/catalog"
	"github.com/shiva/tripplanner/internal/model"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tripctl",
		Short: "Offline tools for the trip planner",
		Long: `tripctl exercises the plan pipeline without a server:
  - verify a destination against the travel advisory tables
  - print a request's fingerprint and estimated processing time
  - render the generation prompt for a request
  - price-check a saved model response against a request
  - issue a development bearer token`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newVerifyCmd(),
		newFingerprintCmd(),
		newPromptCmd(),
		newValidateCmd(),
		newTokenCmd(),
	)
	return root
}

// ─── Shared helpers ─────────────────────────────────────────

func loadCatalog() (*catalog.Catalog, error) {
	c, err := catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return c, nil
}

// readRequest loads a plan request from a JSON file, applies defaults and
// rejects invalid input. "-" reads stdin.
func readRequest(cmd *cobra.Command, path string) (model.PlanRequest, error) {
	var req model.PlanRequest
	raw, err := readInput(cmd, path)
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("parse request %s: %w", path, err)
	}
	req.ApplyDefaults()
	return req, nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("no input file given")
	}
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
