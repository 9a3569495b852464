package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rcliao/issuereg/internal/engine"
	"github.com/rcliao/issuereg/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the register and the last reconciliation run",
		Run:   runReport,
	}
	cmd.Flags().IntP("limit", "l", 10, "Max issues to list")
	RootCmd.AddCommand(cmd)
}

func runReport(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	header := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)

	header.Println("Last run")
	runStart, _ := s.GetState(ctx, engine.StateLastRunStart)
	runEnd, _ := s.GetState(ctx, engine.StateLastRunEnd)
	watermark, _ := s.GetState(ctx, engine.StateWatermark)
	if runEnd == "" {
		dim.Println("  (no runs recorded)")
	} else {
		fmt.Printf("  range:     %s .. %s\n", runStart, runEnd)
		fmt.Printf("  watermark: %s\n", watermark)
	}

	stats, err := s.Stats(ctx, cfg.DBPath)
	if err != nil {
		exitErr("stats", err)
	}

	header.Println("\nRegister")
	fmt.Printf("  issues:    %d (%d open)\n", stats.TotalIssues, stats.OpenIssues)
	fmt.Printf("  steps:     %d (%d suggested)\n", stats.TotalSteps, stats.SuggestedSteps)
	fmt.Printf("  revisions: %d\n", stats.TotalRevisions)
	fmt.Printf("  meetings:  %d, documents: %d\n", stats.TotalMeetings, stats.TotalDocuments)
	for _, d := range stats.Domains {
		dim.Printf("  %-20s %d issues, %d open\n", d.Domain, d.Count, d.Open)
	}

	header.Println("\nMost recently updated")
	issues, err := s.ListIssues(ctx, store.ListIssuesParams{Limit: limit})
	if err != nil {
		exitErr("list", err)
	}
	if len(issues) == 0 {
		dim.Println("  (none)")
		return
	}
	statusColor := map[string]*color.Color{
		"Open":   color.New(color.FgGreen),
		"Closed": color.New(color.Faint),
	}
	for _, issue := range issues {
		c, ok := statusColor[issue.Status]
		if !ok {
			c = color.New(color.FgYellow)
		}
		fmt.Printf("  %s  %s  ", issue.UpdatedAt.Format("2006-01-02"), issue.ID)
		c.Printf("[%s]", issue.Status)
		fmt.Printf(" %s\n", issue.Title)
	}
}
