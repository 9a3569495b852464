package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/issuereg/internal/model"
	"github.com/rcliao/issuereg/internal/store"
)

// exportedIssue is one issue with its full history attached.
type exportedIssue struct {
	model.Issue
	Steps     []model.Step     `json:"steps,omitempty"`
	Revisions []model.Revision `json:"revisions,omitempty"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump the register with steps and revisions as JSON",
		Run:   runExport,
	}
	cmd.Flags().StringP("status", "s", "", "Filter by exact status")
	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	status, _ := cmd.Flags().GetString("status")

	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	issues, err := s.ListIssues(ctx, store.ListIssuesParams{Status: status})
	if err != nil {
		exitErr("export", err)
	}

	exported := make([]exportedIssue, 0, len(issues))
	for _, issue := range issues {
		e := exportedIssue{Issue: issue}
		if e.Steps, err = s.StepsForIssue(ctx, issue.ID); err != nil {
			exitErr("export steps", err)
		}
		if e.Revisions, err = s.RevisionsForIssue(ctx, issue.ID); err != nil {
			exitErr("export revisions", err)
		}
		exported = append(exported, e)
	}

	b, _ := json.MarshalIndent(exported, "", "  ")
	fmt.Println(string(b))
}
