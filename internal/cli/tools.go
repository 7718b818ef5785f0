package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect registered tools",
	Long:  `List the registered tools or print their function schemas.`,
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered tools",
	Args:  cobra.NoArgs,
	RunE:  runToolsList,
}

var toolsSchemasCmd = &cobra.Command{
	Use:   "schemas [tool...]",
	Short: "Print function schemas as JSON",
	Long: `Print the function-calling schemas of the named tools, or of every
registered tool when no names are given. Unknown names are skipped.`,
	RunE: runToolsSchemas,
}

func init() {
	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsSchemasCmd)
	rootCmd.AddCommand(toolsCmd)
}

func runToolsList(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tREQUIRED\tDESCRIPTION")
	for _, t := range rt.registry.GetAllTools() {
		required := strings.Join(t.Schema().Required, ",")
		if required == "" {
			required = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name(), required, t.Description())
	}
	return w.Flush()
}

func runToolsSchemas(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	return writeJSON(cmd.OutOrStdout(), rt.registry.GetToolSchemas(args...))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
