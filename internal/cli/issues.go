package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/issuereg/internal/engine"
	"github.com/rcliao/issuereg/internal/model"
	"github.com/rcliao/issuereg/internal/store"
)

func init() {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List issues in the register",
		Run:   runList,
	}
	listCmd.Flags().StringP("status", "s", "", "Filter by exact status")
	listCmd.Flags().String("domain", "", "Filter by domain substring")
	listCmd.Flags().IntP("limit", "l", 0, "Max results (default all)")

	showCmd := &cobra.Command{
		Use:   "show <issue-id>",
		Short: "Show one issue with its steps, revisions, and links",
		Args:  cobra.ExactArgs(1),
		Run:   runShow,
	}

	newCmd := &cobra.Command{
		Use:   "new <title>",
		Short: "Create an issue manually",
		Args:  cobra.MinimumNArgs(1),
		Run:   runNew,
	}
	newCmd.Flags().String("domain", "General", "Issue domain")
	newCmd.Flags().Float64("confidence", 0.5, "Confidence between 0 and 1")
	newCmd.Flags().String("situation", "", "Initial situation text")

	editCmd := &cobra.Command{
		Use:   "edit <issue-id>",
		Short: "Edit issue fields, recording a revision per change",
		Long: "Edit replaces the fields given by flags and keeps the rest. Every\n" +
			"changed field is recorded as a revision with actor \"user\".",
		Args: cobra.ExactArgs(1),
		Run:  runEdit,
	}
	editCmd.Flags().String("title", "", "New title")
	editCmd.Flags().String("domain", "", "New domain")
	editCmd.Flags().String("status", "", "New status")
	editCmd.Flags().Float64("confidence", 0, "New confidence between 0 and 1")
	editCmd.Flags().String("situation", "", "Replacement situation text")
	editCmd.Flags().String("complication", "", "Replacement complication text")
	editCmd.Flags().String("resolution", "", "Replacement resolution text")

	RootCmd.AddCommand(listCmd, showCmd, newCmd, editCmd)
}

func runList(cmd *cobra.Command, args []string) {
	status, _ := cmd.Flags().GetString("status")
	domain, _ := cmd.Flags().GetString("domain")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	issues, err := s.ListIssues(cmd.Context(), store.ListIssuesParams{
		Status: status,
		Domain: domain,
		Limit:  limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	b, _ := json.MarshalIndent(issues, "", "  ")
	fmt.Println(string(b))
}

// issueDetail is the show command's output shape.
type issueDetail struct {
	Issue     *model.Issue     `json:"issue"`
	Steps     []model.Step     `json:"steps,omitempty"`
	Revisions []model.Revision `json:"revisions,omitempty"`
	Documents []model.Document `json:"documents,omitempty"`
	Meetings  []model.Meeting  `json:"meetings,omitempty"`
}

func runShow(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	issueID := args[0]

	issue, err := s.GetIssue(ctx, issueID)
	if err != nil {
		exitErr("show", err)
	}

	detail := issueDetail{Issue: issue}
	if detail.Steps, err = s.StepsForIssue(ctx, issueID); err != nil {
		exitErr("steps", err)
	}
	if detail.Revisions, err = s.RevisionsForIssue(ctx, issueID); err != nil {
		exitErr("revisions", err)
	}
	if detail.Documents, err = s.DocumentsForIssue(ctx, issueID); err != nil {
		exitErr("documents", err)
	}
	if detail.Meetings, err = s.MeetingsForIssue(ctx, issueID); err != nil {
		exitErr("meetings", err)
	}

	b, _ := json.MarshalIndent(detail, "", "  ")
	fmt.Println(string(b))
}

func runEdit(cmd *cobra.Command, args []string) {
	edit := engine.Edit{}
	edit.Title, _ = cmd.Flags().GetString("title")
	edit.Domain, _ = cmd.Flags().GetString("domain")
	edit.Status, _ = cmd.Flags().GetString("status")
	edit.Situation, _ = cmd.Flags().GetString("situation")
	edit.Complication, _ = cmd.Flags().GetString("complication")
	edit.Resolution, _ = cmd.Flags().GetString("resolution")
	if cmd.Flags().Changed("confidence") {
		confidence, _ := cmd.Flags().GetFloat64("confidence")
		edit.Confidence = &confidence
	}

	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	changes, err := engine.UserEdit(ctx, s, args[0], edit)
	if err != nil {
		exitErr("edit", err)
	}
	if len(changes) == 0 {
		fmt.Println("no changes")
		return
	}
	for _, change := range changes {
		fmt.Printf("%s: %q -> %q\n", change.Field, change.Old, change.New)
	}
}

func runNew(cmd *cobra.Command, args []string) {
	domain, _ := cmd.Flags().GetString("domain")
	confidence, _ := cmd.Flags().GetFloat64("confidence")
	situation, _ := cmd.Flags().GetString("situation")

	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	issue, err := s.CreateIssue(cmd.Context(), store.CreateIssueParams{
		Title:      args[0],
		Domain:     domain,
		Status:     "Open",
		Confidence: confidence,
		Situation:  situation,
	})
	if err != nil {
		exitErr("new", err)
	}

	b, _ := json.Marshal(issue)
	fmt.Println(string(b))
}
