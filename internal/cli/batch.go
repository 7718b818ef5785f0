package cli

import (
	"fmt"
	"os"

	"github.com/harun/toolhub/internal/tracing"
	"github.com/harun/toolhub/pkg/tool"
	"github.com/harun/toolhub/pkg/toolregistry"
	"github.com/spf13/cobra"
)

// batchFile is the document accepted by the batch command. A bare list of
// calls is accepted as well.
type batchFile struct {
	Parallel bool                `json:"parallel" yaml:"parallel"`
	Calls    []toolregistry.Call `json:"calls" yaml:"calls"`
}

// batchOutput is printed when a batch completes
type batchOutput struct {
	RunID            string                    `json:"runId"`
	Mode             string                    `json:"mode"`
	Records          []toolregistry.CallRecord `json:"records"`
	ResourcesCreated []tool.ResourceRef        `json:"resourcesCreated"`
}

var (
	batchFlags    contextFlags
	batchPath     string
	batchParallel bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Execute a batch of tool calls",
	Long: `Execute the calls listed in a JSON or YAML file.

Sequential batches stop at the first failure. Arguments may reference the
output of earlier steps with {{ stepId.path }} placeholders, where stepId
is the call's id or step<N> for the N-th call (1-based).

Parallel batches run every call concurrently and report each outcome.
Placeholders are not resolved in parallel mode.

When --run is omitted a fresh run id is generated, so identical calls in
the same batch share cached results.`,
	Example: `  toolhub batch --file plan.yaml
  toolhub batch --file calls.json --parallel --org acme`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	batchFlags.bind(batchCmd)
	batchCmd.Flags().StringVarP(&batchPath, "file", "f", "", "batch file (.json, .yaml)")
	batchCmd.Flags().BoolVar(&batchParallel, "parallel", false, "execute calls concurrently")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	doc, err := readBatchFile(batchPath)
	if err != nil {
		return err
	}

	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	execCtx := batchFlags.execContext()
	if execCtx.RunID == "" {
		execCtx.RunID = tracing.NewRunID()
	}

	mode := toolregistry.ModeSequential
	var records []toolregistry.CallRecord
	if batchParallel || doc.Parallel {
		mode = toolregistry.ModeParallel
		records = rt.registry.ExecuteInParallel(cmd.Context(), doc.Calls, execCtx)
	} else {
		records = rt.registry.ExecuteSequentially(cmd.Context(), doc.Calls, execCtx)
	}

	out := batchOutput{
		RunID:            execCtx.RunID,
		Mode:             mode,
		Records:          records,
		ResourcesCreated: rt.registry.GetResourcesCreated(records),
	}
	if out.Records == nil {
		out.Records = []toolregistry.CallRecord{}
	}
	if out.ResourcesCreated == nil {
		out.ResourcesCreated = []tool.ResourceRef{}
	}
	if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
		return err
	}

	failed := 0
	for _, rec := range records {
		if !rec.Result.Success {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("batch finished with %d failed call(s)", failed)
	}
	return nil
}

func readBatchFile(path string) (batchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return batchFile{}, fmt.Errorf("failed to read batch file: %w", err)
	}

	var calls []toolregistry.Call
	if err := decodeDocument(path, data, &calls); err == nil {
		return batchFile{Calls: calls}, nil
	}

	var doc batchFile
	if err := decodeDocument(path, data, &doc); err != nil {
		return batchFile{}, fmt.Errorf("invalid batch file: %w", err)
	}
	return doc, nil
}
