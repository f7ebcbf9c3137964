package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/gosh-shell/gosh/core"
	"github.com/gosh-shell/gosh/core/config"
	"github.com/gosh-shell/gosh/core/logger"
)

var (
	cfgPath string
	command string

	// shellStatus is the interactive shell's exit code, consumed by
	// Execute after the deferred cleanup in runShell has run.
	shellStatus int
)

// loadConfig loads the configured file, falling back to defaults when
// no file exists at the default location. An explicitly passed --config
// must exist.
func loadConfig(cmd *cobra.Command) (*config.Configuration, error) {
	appFs := afero.NewOsFs()
	cfg, err := config.Load(appFs, cfgPath)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	return cfg, err
}

func openLogger(cfg *config.Configuration) (*logger.Logger, func(), error) {
	if cfg.LogFile == "" {
		return logger.Nop(), func() {}, nil
	}
	fd, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, nil, err
	}
	return logger.NewJsonLinesLogRecorder(fd), func() { fd.Close() }, nil
}

// runShell builds the shell, runs it (one-shot with -c, interactive
// otherwise) and returns its exit status once cleanup has finished.
func runShell(cmd *cobra.Command) (int, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return 0, err
	}
	log, closeLog, err := openLogger(cfg)
	if err != nil {
		return 0, err
	}
	defer closeLog()

	sh, err := core.NewShell(cfg, log)
	if err != nil {
		return 0, err
	}
	defer sh.Close()

	if command != "" {
		return sh.Interpret(command).Status, nil
	}
	return sh.Run(), nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gosh",
	Short: "A job-controlling POSIX-style shell",
	Long: `An interactive shell that runs pipelines as real OS processes with
full job control: background jobs, suspend with ^Z, fg and bg.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := runShell(cmd)
		if err != nil {
			return err
		}
		shellStatus = status
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(shellStatus)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.ConfigurationName, "config path")
	rootCmd.Flags().StringVarP(&command, "command", "c", "", "run a single command line and exit")
}
