package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/voicetask/internal/flow"
)

func init() {
	cmd := &cobra.Command{
		Use:   "do [utterance]",
		Short: "Parse an utterance and apply the resulting task changes",
		Long:  "Parse a sentence like \"add a dentist call tomorrow morning and mark the email task done\" and commit every resulting intent. The utterance can be a positional arg or piped via stdin.",
		Run:   runDo,
	}

	cmd.Flags().Int("target", -1, "Pick the Nth candidate when an update matches several tasks")

	RootCmd.AddCommand(cmd)
}

func runDo(cmd *cobra.Command, args []string) {
	targetIdx, _ := cmd.Flags().GetInt("target")

	utterance := readUtterance(args)
	if strings.TrimSpace(utterance) == "" {
		exitErr("do", fmt.Errorf("utterance is required (positional arg or stdin)"))
	}

	e, err := openEnv()
	if err != nil {
		exitErr("setup", err)
	}
	defer e.close()

	engine := flow.New(e.parser, e.ops, e.store, e.logger, time.Now)
	if err := engine.Submit(cmd.Context(), utterance); err != nil {
		exitErr("submit", err)
	}

	for {
		switch engine.State() {
		case flow.StateReviewingSummary:
			if err := engine.ConfirmAll(cmd.Context()); err != nil {
				exitErr("confirm", err)
			}
		case flow.StateReviewingCreate, flow.StateReviewingUpdate:
			if err := engine.Advance(cmd.Context()); err != nil {
				exitErr("commit", err)
			}
		case flow.StateSelectingTarget:
			candidates := engine.Candidates()
			if targetIdx < 0 || targetIdx >= len(candidates) {
				fmt.Fprintln(os.Stderr, "several tasks match:")
				for i, c := range candidates {
					fmt.Fprintf(os.Stderr, "  [%d] %s (%s)\n", i, c.Title, c.Status)
				}
				exitErr("select", fmt.Errorf("rerun with --target N"))
			}
			if err := engine.SelectTarget(targetIdx); err != nil {
				exitErr("select", err)
			}
		case flow.StateCompleted:
			fmt.Println(engine.Summary())
			return
		case flow.StateFailed:
			exitErr("flow", fmt.Errorf("%s", engine.FailReason()))
		default:
			exitErr("flow", fmt.Errorf("unexpected state %s", engine.State()))
		}
	}
}

func readUtterance(args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return string(b)
	}
	return ""
}
