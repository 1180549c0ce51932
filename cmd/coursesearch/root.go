package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rhuss/coursesearch/pkg/config"
	"github.com/rhuss/coursesearch/pkg/debug"
)

// cli holds state shared by all subcommands.
type cli struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "coursesearch",
		Short: "Course-scoped content search",
		Long: `coursesearch searches the activities and content of a single course:
forum posts, book chapters, quiz questions, lesson pages, wiki pages,
glossary entries, workshop submissions, feedback items and database records.

Example usage:
  coursesearch serve                         # Start the HTTP server
  coursesearch search --course 2 midterm     # Search course 2 from the terminal
  coursesearch migrate                       # Apply schema migrations
  coursesearch seed testdata/course.yaml     # Load demo content`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ./config.yaml or /etc/coursesearch/config.yaml)")

	root.AddCommand(
		newServeCmd(c),
		newSearchCmd(c),
		newMigrateCmd(c),
		newSeedCmd(c),
	)
	return root
}

// init loads .env, the layered configuration, and sets up logging.
func (c *cli) init() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	debug.Init(debug.Settings{
		Categories: cfg.Logging.Debug,
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
	})
	return nil
}
