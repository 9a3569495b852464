package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rcliao/issuereg/internal/store"
)

func init() {
	stepCmd := &cobra.Command{
		Use:   "step",
		Short: "Manage an issue's ordered action items",
	}

	addCmd := &cobra.Command{
		Use:   "add <issue-id> <description>",
		Short: "Add a step (appends unless --position is set)",
		Args:  cobra.ExactArgs(2),
		Run:   runStepAdd,
	}
	addCmd.Flags().Int("position", 0, "1-based position to insert at (0 appends)")
	addCmd.Flags().String("owner", "", "Step owner")
	addCmd.Flags().String("due", "", "Due date (ISO date or empty)")
	addCmd.Flags().String("status", "Open", "Step status")

	moveCmd := &cobra.Command{
		Use:   "move <step-id> <position>",
		Short: "Move a step to a new position",
		Args:  cobra.ExactArgs(2),
		Run:   runStepMove,
	}

	rmCmd := &cobra.Command{
		Use:   "rm <step-id>",
		Short: "Delete a step (remaining steps are renumbered)",
		Args:  cobra.ExactArgs(1),
		Run:   runStepRm,
	}

	acceptCmd := &cobra.Command{
		Use:   "accept <step-id>",
		Short: "Accept a suggested step",
		Args:  cobra.ExactArgs(1),
		Run:   runStepAccept,
	}

	stepCmd.AddCommand(addCmd, moveCmd, rmCmd, acceptCmd)
	RootCmd.AddCommand(stepCmd)
}

func runStepAdd(cmd *cobra.Command, args []string) {
	position, _ := cmd.Flags().GetInt("position")
	owner, _ := cmd.Flags().GetString("owner")
	due, _ := cmd.Flags().GetString("due")
	status, _ := cmd.Flags().GetString("status")

	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	step, err := s.AddStep(cmd.Context(), store.AddStepParams{
		IssueID:     args[0],
		Description: args[1],
		Owner:       owner,
		DueDate:     due,
		Status:      status,
		Position:    position,
	})
	if err != nil {
		exitErr("add step", err)
	}

	b, _ := json.Marshal(step)
	fmt.Println(string(b))
}

func runStepMove(cmd *cobra.Command, args []string) {
	position, err := strconv.Atoi(args[1])
	if err != nil {
		exitErr("move step", fmt.Errorf("position must be an integer: %q", args[1]))
	}

	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.MoveStep(cmd.Context(), args[0], position); err != nil {
		exitErr("move step", err)
	}
	fmt.Println("moved")
}

func runStepRm(cmd *cobra.Command, args []string) {
	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.DeleteStep(cmd.Context(), args[0]); err != nil {
		exitErr("rm step", err)
	}
	fmt.Println("deleted")
}

func runStepAccept(cmd *cobra.Command, args []string) {
	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.AcceptStep(cmd.Context(), args[0]); err != nil {
		exitErr("accept step", err)
	}
	fmt.Println("accepted")
}
