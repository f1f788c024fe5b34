package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "parse [utterance]",
		Short: "Parse an utterance and print the intents without committing",
		Run:   runParse,
	}

	RootCmd.AddCommand(cmd)
}

func runParse(cmd *cobra.Command, args []string) {
	utterance := readUtterance(args)
	if strings.TrimSpace(utterance) == "" {
		exitErr("parse", fmt.Errorf("utterance is required (positional arg or stdin)"))
	}

	e, err := openEnv()
	if err != nil {
		exitErr("setup", err)
	}
	defer e.close()

	tasks, err := e.store.FetchOpenTasks(cmd.Context(), 20)
	if err != nil {
		exitErr("fetch tasks", err)
	}

	result, err := e.parser.Parse(cmd.Context(), utterance, tasks)
	if err != nil {
		exitErr("parse", err)
	}

	if formatFlag == "json" {
		b, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(b))
		return
	}

	fmt.Printf("confidence: %.2f\n", result.Confidence)
	for _, c := range result.CreateIntents {
		fmt.Printf("create: %q priority=%s", c.Title, c.Priority)
		if c.ScheduleWindow != nil && c.ScheduleWindow.Start != nil {
			fmt.Printf(" window=%s", c.ScheduleWindow.Start.Format("Mon 15:04"))
		}
		fmt.Println()
	}
	for _, u := range result.UpdateIntents {
		fmt.Printf("update: %s target=%q keywords=%v\n", u.Action, u.Target.RawDescription, u.Target.TitleKeywords)
	}
}
