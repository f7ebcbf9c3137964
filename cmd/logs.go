package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gosh-shell/gosh/core/logger"
)

var logsCmd = &cobra.Command{
	Use:     "logs",
	Aliases: []string{"log"},
	Short:   "Explore the shell's activity logs.",
}

// catCommand prints a JSON-lines activity log in a readable form.
var catCommand = &cobra.Command{
	Use:   "cat LOG_FILE",
	Short: "Print an activity log to the terminal.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		fd, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer fd.Close()

		return printLog(fd, cmd.OutOrStdout())
	},
}

func printLog(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry logger.Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return fmt.Errorf("malformed log line: %w", err)
		}

		ts := time.UnixMicro(entry.TimestampMicros).UTC().Format(time.RFC3339)
		switch {
		case entry.RunCommand != nil:
			suffix := ""
			if entry.RunCommand.Background {
				suffix = " &"
			}
			fmt.Fprintf(w, "%s run  %q (%d segments)%s\n",
				ts, entry.RunCommand.Raw, entry.RunCommand.Segments, suffix)
		case entry.SpawnError != nil:
			fmt.Fprintf(w, "%s err  %s: %s\n",
				ts, entry.SpawnError.Program, entry.SpawnError.Error)
		case entry.Job != nil:
			fmt.Fprintf(w, "%s job  [%d] %s %q (pgid %d)\n",
				ts, entry.Job.ID, entry.Job.Status, entry.Job.Command, entry.Job.PGID)
		}
	}
	return scanner.Err()
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(catCommand)
}
