package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/voicetask/internal/lifecycle"
	"github.com/rcliao/voicetask/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a task directly, bypassing intent parsing",
		Run:   runAdd,
	}

	cmd.Flags().StringP("priority", "p", "normal", "Priority: urgent, normal, low")
	cmd.Flags().String("note", "", "Free-form note")
	cmd.Flags().String("at", "", "Schedule phrase (e.g. \"tonight\", \"tomorrow morning\")")

	RootCmd.AddCommand(cmd)
}

func runAdd(cmd *cobra.Command, args []string) {
	priority, _ := cmd.Flags().GetString("priority")
	note, _ := cmd.Flags().GetString("note")
	at, _ := cmd.Flags().GetString("at")

	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		exitErr("add", fmt.Errorf("title is required"))
	}
	p := model.Priority(priority)
	if !model.ValidPriorities[p] {
		exitErr("add", fmt.Errorf("unknown priority %q", priority))
	}

	e, err := openEnv()
	if err != nil {
		exitErr("setup", err)
	}
	defer e.close()

	params := lifecycle.CreateParams{Title: title, Priority: p, Note: note}
	if at != "" {
		win, ok := e.calc.WindowFromPhrase(at, time.Now())
		if !ok {
			exitErr("add", fmt.Errorf("unrecognized schedule phrase %q", at))
		}
		params.Window = &win
	}

	task, err := e.ops.CreateTask(cmd.Context(), params)
	if err != nil {
		exitErr("add", err)
	}

	if formatFlag == "json" {
		b, _ := json.Marshal(task)
		fmt.Println(string(b))
		return
	}
	fmt.Printf("created %s: %s\n", task.ID, task.Title)
}
