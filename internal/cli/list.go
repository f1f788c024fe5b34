package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/voicetask/internal/model"
	"github.com/rcliao/voicetask/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Run:   runList,
	}

	cmd.Flags().StringP("status", "s", "", "Filter by status")
	cmd.Flags().StringP("priority", "p", "", "Filter by priority")
	cmd.Flags().StringP("title", "t", "", "Filter by title substring")
	cmd.Flags().BoolP("all", "a", false, "Include done tasks")
	cmd.Flags().IntP("limit", "l", 50, "Max results")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	status, _ := cmd.Flags().GetString("status")
	priority, _ := cmd.Flags().GetString("priority")
	title, _ := cmd.Flags().GetString("title")
	all, _ := cmd.Flags().GetBool("all")
	limit, _ := cmd.Flags().GetInt("limit")

	e, err := openEnv()
	if err != nil {
		exitErr("setup", err)
	}
	defer e.close()

	tasks, err := e.store.List(cmd.Context(), store.ListParams{
		Status:      model.Status(status),
		Priority:    model.Priority(priority),
		TitleLike:   title,
		IncludeDone: all,
		Limit:       limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	if formatFlag == "json" {
		b, _ := json.Marshal(tasks)
		fmt.Println(string(b))
		return
	}

	for _, t := range tasks {
		line := fmt.Sprintf("%s  [%s] %s (%s)", t.ID, t.Status, t.Title, t.Priority)
		if t.WindowStart != nil {
			line += "  @ " + t.WindowStart.Format("Mon 15:04")
		}
		if t.SnoozeCount > 0 {
			line += fmt.Sprintf("  snoozed x%d", t.SnoozeCount)
		}
		fmt.Println(line)
	}
}
