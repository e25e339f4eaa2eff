package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/meeting-agent/internal/agent"
)

var (
	processFile string
	processJSON bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process one meeting note into a proposed action plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		notes, err := readNotes(processFile)
		if err != nil {
			return err
		}

		env, err := initAgent(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		st, err := env.Agent.Run(ctx, notes)
		if err != nil {
			var failure *agent.Failure
			if errors.As(err, &failure) {
				zap.L().Error("run failed",
					zap.String("run_id", st.RunID),
					zap.String("phase", failure.Phase),
					zap.Error(failure.Err))
			}
			return eris.Wrap(err, "process")
		}

		result := agent.BuildResult(st)

		if processJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		fmt.Print(agent.FormatReport(result))
		return nil
	},
}

// readNotes reads from the given file, or stdin when the path is "-" or
// empty.
func readNotes(path string) (string, error) {
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", eris.Wrap(err, "read notes")
	}
	if len(data) == 0 {
		return "", eris.New("notes are empty")
	}
	return string(data), nil
}

func init() {
	processCmd.Flags().StringVarP(&processFile, "file", "f", "", "notes file (default stdin)")
	processCmd.Flags().BoolVar(&processJSON, "json", false, "emit the result as JSON")
	rootCmd.AddCommand(processCmd)
}
