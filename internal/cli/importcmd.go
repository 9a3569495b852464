package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/issuereg/internal/store"
)

// manifest is the YAML shape accepted by the import command: meetings
// with their transcript documents inline.
type manifest struct {
	Meetings []manifestMeeting `yaml:"meetings"`
}

type manifestMeeting struct {
	Date      string             `yaml:"date"`
	Title     string             `yaml:"title"`
	SourceTag string             `yaml:"source_tag"`
	Documents []manifestDocument `yaml:"documents"`
}

type manifestDocument struct {
	Title string `yaml:"title"`
	Path  string `yaml:"path"`
	Tags  string `yaml:"tags"`
	Text  string `yaml:"text"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "import <manifest.yaml>",
		Short: "Import meetings and their documents from a YAML manifest",
		Args:  cobra.ExactArgs(1),
		Run:   runImport,
	}
	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	data, err := os.ReadFile(args[0])
	if err != nil {
		exitErr("read manifest", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		exitErr("parse manifest", err)
	}

	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	meetings, documents := 0, 0

	err = s.WithTx(ctx, func() error {
		for _, mm := range m.Meetings {
			meeting, err := s.CreateMeeting(ctx, store.CreateMeetingParams{
				Date:      mm.Date,
				Title:     mm.Title,
				SourceTag: mm.SourceTag,
			})
			if err != nil {
				return fmt.Errorf("meeting %q: %w", mm.Date, err)
			}
			meetings++

			for _, md := range mm.Documents {
				doc, err := s.CreateDocument(ctx, store.CreateDocumentParams{
					Title:       md.Title,
					Path:        md.Path,
					Tags:        md.Tags,
					TextExcerpt: md.Text,
				})
				if err != nil {
					return fmt.Errorf("document %q: %w", md.Title, err)
				}
				if err := s.LinkMeetingDocument(ctx, meeting.ID, doc.ID); err != nil {
					return err
				}
				documents++
			}
		}
		return nil
	})
	if err != nil {
		exitErr("import", err)
	}

	fmt.Printf("imported %d meetings, %d documents\n", meetings, documents)
}
