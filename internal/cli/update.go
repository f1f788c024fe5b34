package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/voicetask/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update <task-id> <action>",
		Short: "Apply a lifecycle action to a task by id",
		Long:  "Apply one of: start, pause, resume, complete, skip, delete, snooze, reschedule.",
		Args:  cobra.ExactArgs(2),
		Run:   runUpdate,
	}

	cmd.Flags().Int("minutes", 0, "Snooze duration in minutes (snooze only)")
	cmd.Flags().String("until", "", "Snooze until an RFC3339 time (snooze only)")
	cmd.Flags().String("start", "", "New window start, RFC3339 (reschedule only)")
	cmd.Flags().String("end", "", "New window end, RFC3339 (reschedule only)")

	RootCmd.AddCommand(cmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	id := args[0]
	action := model.UpdateAction(args[1])
	if !model.ValidActions[action] {
		exitErr("update", fmt.Errorf("unknown action %q", args[1]))
	}

	params, err := updateParams(cmd)
	if err != nil {
		exitErr("update", err)
	}

	e, err := openEnv()
	if err != nil {
		exitErr("setup", err)
	}
	defer e.close()

	task, err := e.store.Get(cmd.Context(), id)
	if err != nil {
		exitErr("update", err)
	}

	if err := e.ops.ApplyUpdate(cmd.Context(), task, action, params); err != nil {
		exitErr("update", err)
	}

	if action == model.ActionDelete {
		fmt.Printf("deleted %s\n", id)
		return
	}
	if formatFlag == "json" {
		b, _ := json.Marshal(task)
		fmt.Println(string(b))
		return
	}
	fmt.Printf("%s: %s [%s]\n", string(action), task.Title, task.Status)
}

func updateParams(cmd *cobra.Command) (model.UpdateParams, error) {
	var params model.UpdateParams

	minutes, _ := cmd.Flags().GetInt("minutes")
	untilStr, _ := cmd.Flags().GetString("until")
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")

	if untilStr != "" {
		until, err := time.Parse(time.RFC3339, untilStr)
		if err != nil {
			return params, fmt.Errorf("bad --until: %w", err)
		}
		params.SnoozeUntil = &until
	} else if minutes > 0 {
		d := time.Duration(minutes) * time.Minute
		params.SnoozeDuration = &d
	}

	if startStr != "" || endStr != "" {
		win := &model.ScheduleWindow{}
		if startStr != "" {
			start, err := time.Parse(time.RFC3339, startStr)
			if err != nil {
				return params, fmt.Errorf("bad --start: %w", err)
			}
			win.Start = &start
		}
		if endStr != "" {
			end, err := time.Parse(time.RFC3339, endStr)
			if err != nil {
				return params, fmt.Errorf("bad --end: %w", err)
			}
			win.End = &end
		}
		params.NewSchedule = win
	}

	return params, nil
}
