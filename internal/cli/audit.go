package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/harun/toolhub/pkg/audit"
	"github.com/spf13/cobra"
)

var (
	auditOrg   string
	auditTool  string
	auditLimit int
	auditJSON  bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent tool executions",
	Long: `List audit records, newest first. Requires an audit sink that can be
queried, such as sqlite.`,
	Args: cobra.NoArgs,
	RunE: runAuditList,
}

func init() {
	auditListCmd.Flags().StringVar(&auditOrg, "org", "", "only records of this organization")
	auditListCmd.Flags().StringVar(&auditTool, "tool", "", "only records of this tool")
	auditListCmd.Flags().IntVarP(&auditLimit, "limit", "n", 20, "maximum number of records (0 = all)")
	auditListCmd.Flags().BoolVar(&auditJSON, "json", false, "print records as JSON")
	auditCmd.AddCommand(auditListCmd)
	rootCmd.AddCommand(auditCmd)
}

func runAuditList(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	lister, ok := rt.lister()
	if !ok {
		return fmt.Errorf("no queryable audit sink configured (have %v)", rt.cfg.Audit.Sinks)
	}

	records, err := lister.List(cmd.Context(), audit.Query{
		OrgID:      auditOrg,
		ResourceID: auditTool,
		Limit:      auditLimit,
	})
	if err != nil {
		return err
	}

	if auditJSON {
		if records == nil {
			records = []audit.Record{}
		}
		return writeJSON(cmd.OutOrStdout(), records)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tORG\tTOOL\tSUCCESS\tMS\tRUN")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%v\t%v\n",
			r.CreatedAt.Local().Format(time.DateTime),
			r.OrgID,
			r.ResourceID,
			metadataValue(r.Metadata, "success"),
			metadataValue(r.Metadata, "executionTimeMs"),
			metadataValue(r.Metadata, "runId"),
		)
	}
	return w.Flush()
}

func metadataValue(metadata map[string]interface{}, key string) interface{} {
	if v, ok := metadata[key]; ok && v != nil {
		return v
	}
	return "-"
}
