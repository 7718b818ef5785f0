package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harun/toolhub/pkg/tool"
	"github.com/harun/toolhub/pkg/toolregistry"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// contextFlags binds the execution context flags shared by exec and batch
type contextFlags struct {
	orgID      string
	userID     string
	agentID    string
	workflowID string
	runID      string
}

func (f *contextFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.orgID, "org", "default", "organization id")
	cmd.Flags().StringVar(&f.userID, "user", "", "user id")
	cmd.Flags().StringVar(&f.agentID, "agent", "", "agent id recorded in the audit log")
	cmd.Flags().StringVar(&f.workflowID, "workflow", "", "workflow id recorded in the audit log")
	cmd.Flags().StringVar(&f.runID, "run", "", "run id; results are only cached within a run")
}

func (f *contextFlags) execContext() tool.ExecutionContext {
	return tool.ExecutionContext{
		OrgID:      f.orgID,
		UserID:     f.userID,
		AgentID:    f.agentID,
		WorkflowID: f.workflowID,
		RunID:      f.runID,
	}
}

var (
	execFlags    contextFlags
	execArgs     string
	execArgsFile string
	execNoCache  bool
	execTTL      time.Duration
)

var execCmd = &cobra.Command{
	Use:   "exec <tool>",
	Short: "Execute a single tool",
	Long: `Validate the arguments against the tool's schema and execute it.
The result is printed as JSON. The command fails when the tool reports
failure.`,
	Example: `  toolhub exec echo --args '{"msg":"hello"}'
  toolhub exec read_file --args-file args.yaml --run run-1`,
	Args: cobra.ExactArgs(1),
	RunE: runExec,
}

func init() {
	execFlags.bind(execCmd)
	execCmd.Flags().StringVar(&execArgs, "args", "", "tool arguments as a JSON object")
	execCmd.Flags().StringVar(&execArgsFile, "args-file", "", "read tool arguments from a JSON or YAML file")
	execCmd.Flags().BoolVar(&execNoCache, "no-cache", false, "bypass the result cache")
	execCmd.Flags().DurationVar(&execTTL, "ttl", 0, "cache ttl for this result (default from tool or config)")
	execCmd.MarkFlagsMutuallyExclusive("args", "args-file")
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	toolArgs, err := readArguments(execArgs, execArgsFile)
	if err != nil {
		return err
	}

	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	var opts []toolregistry.ExecOption
	if execNoCache {
		opts = append(opts, toolregistry.WithoutCache())
	}
	if execTTL > 0 {
		opts = append(opts, toolregistry.WithCacheTTL(execTTL))
	}

	result := rt.registry.Execute(cmd.Context(), args[0], toolArgs, execFlags.execContext(), opts...)
	if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("tool %s failed: %s", args[0], result.Error)
	}
	return nil
}

// readArguments parses tool arguments from an inline JSON object or a file
func readArguments(inline, path string) (map[string]interface{}, error) {
	toolArgs := map[string]interface{}{}

	switch {
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read arguments file: %w", err)
		}
		if err := decodeDocument(path, data, &toolArgs); err != nil {
			return nil, fmt.Errorf("invalid arguments file: %w", err)
		}
	case strings.TrimSpace(inline) != "":
		if err := json.Unmarshal([]byte(inline), &toolArgs); err != nil {
			return nil, fmt.Errorf("invalid --args: %w", err)
		}
	}

	if toolArgs == nil {
		toolArgs = map[string]interface{}{}
	}
	return toolArgs, nil
}

// decodeDocument decodes JSON or YAML by file extension
func decodeDocument(path string, data []byte, out interface{}) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, out)
	default:
		return json.Unmarshal(data, out)
	}
}
