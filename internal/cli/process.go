package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/issuereg/internal/embedding"
	"github.com/rcliao/issuereg/internal/engine"
	"github.com/rcliao/issuereg/internal/extract"
)

func init() {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Reconcile meetings in a date range into the register",
		Long: "Process meetings in ascending date order: narrow the register to the\n" +
			"most relevant issues, call the extraction provider, and apply its\n" +
			"proposals as append-only deltas. Each meeting commits in its own\n" +
			"transaction together with the watermark, so an aborted run can resume.",
		Run: runProcess,
	}

	cmd.Flags().String("start", "", "Start date YYYY-MM-DD (required)")
	cmd.Flags().String("end", "", "End date YYYY-MM-DD (required)")
	cmd.Flags().Bool("resume", false, "Skip meetings at or before the stored watermark")
	cmd.Flags().Int("max-chars", 0, "Max transcript chars per meeting (default from config)")
	cmd.Flags().Int("limit", 0, "Candidate set size per meeting (default from config)")
	cmd.Flags().Int("max-issues", 0, "Max register issues offered to selection (default all)")

	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")

	RootCmd.AddCommand(cmd)
}

func runProcess(cmd *cobra.Command, args []string) {
	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	resume, _ := cmd.Flags().GetBool("resume")
	maxChars, _ := cmd.Flags().GetInt("max-chars")
	limit, _ := cmd.Flags().GetInt("limit")
	maxIssues, _ := cmd.Flags().GetInt("max-issues")

	cfg := loadConfig()
	if maxChars <= 0 {
		maxChars = cfg.MaxChars
	}
	if limit <= 0 {
		limit = cfg.CandidateLimit
	}

	embedder, err := embedding.NewOpenAIEmbedder(embedding.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.EmbedModel,
	})
	if err != nil {
		exitErr("embedding provider", err)
	}

	extractor, err := extract.NewOpenAIExtractor(extract.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.ExtractModel,
	})
	if err != nil {
		exitErr("extraction provider", err)
	}

	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	runner := engine.NewRunner(s, engine.NewSelector(s, embedder), extractor, engine.Options{
		MaxChars:       maxChars,
		CandidateLimit: limit,
		MaxIssues:      maxIssues,
	})

	report, err := runner.Run(cmd.Context(), start, end, resume)
	if err != nil {
		exitErr("process", err)
	}

	b, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(b))
}
