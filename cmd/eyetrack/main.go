package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/eyetracktask/eyetrack/cmd/eyetrack/commands"
)

// @title EyeTrack Task API
// @version 1.0
// @description Personal kanban board: projects, tasks, sub-tasks, due dates and profiles.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	rootCmd := &cobra.Command{
		Use:           "eyetrack",
		Short:         "EyeTrack Task kanban board",
		Long:          `EyeTrack Task is a personal kanban board. Run "eyetrack serve" for the backend or "eyetrack board" for the terminal client.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "config file (default ./eyetrack.yaml)")

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewLoginCommand())
	rootCmd.AddCommand(commands.NewBoardCommand())
	rootCmd.AddCommand(commands.NewImportCommand())
	rootCmd.AddCommand(commands.NewCalendarCommand())
	rootCmd.AddCommand(commands.NewProfileCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
