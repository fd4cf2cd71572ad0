package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/eyetracktask/eyetrack/internal/adapters/local"
	"github.com/eyetracktask/eyetrack/internal/adapters/remote"
	"github.com/eyetracktask/eyetrack/internal/board"
	"github.com/eyetracktask/eyetrack/internal/domain/entities"
	"github.com/eyetracktask/eyetrack/internal/importer"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/config"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/logger"
	"github.com/eyetracktask/eyetrack/internal/ports"
	"github.com/eyetracktask/eyetrack/internal/tui"
)

// NewLoginCommand creates the login command for remote mode
func NewLoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the backend and print an access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Client.Mode() != config.ClientModeRemote {
				return errors.New("login needs client.base_url (EYETRACK_URL); local mode has no account")
			}
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if email == "" || password == "" {
				return errors.New("email and password are required")
			}

			client := remote.New(cfg.Client, logger.NewNop())
			defer client.Close()
			session, err := client.SignIn(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			expires := time.Now().Add(time.Duration(session.ExpiresIn) * time.Second)
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s. Session valid until %s.\n",
				email, expires.Format(time.RFC1123))
			fmt.Fprintf(cmd.OutOrStdout(), "export EYETRACK_TOKEN=%s\n", session.AccessToken)
			return nil
		},
	}
	cmd.Flags().String("email", "", "Account email (required)")
	cmd.Flags().String("password", "", "Account password (required)")
	return cmd
}

// NewBoardCommand creates the interactive board command
func NewBoardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Open the kanban board in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoard(cmd)
		},
	}
}

// NewImportCommand creates the YAML import command
func NewImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Create projects and tasks from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open import file: %w", err)
			}
			defer f.Close()

			doc, err := importer.Parse(f)
			if err != nil {
				return err
			}

			return withStore(cmd, nil, func(ctx context.Context, s *board.Store, log *logger.Logger) error {
				sum, err := importer.New(s, log).Import(ctx, doc)
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d projects, %d tasks, %d sub-tasks\n", sum.Projects, sum.Tasks, sum.SubTasks)
				return err
			})
		},
	}
}

// NewCalendarCommand creates the due date calendar command
func NewCalendarCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "List tasks due in a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			interactive, _ := cmd.Flags().GetBool("interactive")
			if interactive {
				return runBoard(cmd, tui.StartInCalendar())
			}

			month, _ := cmd.Flags().GetString("month")
			first, err := parseMonth(month, time.Now())
			if err != nil {
				return err
			}
			return withStore(cmd, nil, func(ctx context.Context, s *board.Store, log *logger.Logger) error {
				printMonth(cmd, s.Projects(), first)
				return nil
			})
		},
	}
	cmd.Flags().String("month", "", "Month as YYYY-MM (default current month)")
	cmd.Flags().BoolP("interactive", "i", false, "Open the calendar in the terminal UI")
	return cmd
}

// NewProfileCommand creates the profile command
func NewProfileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			email, _ := cmd.Flags().GetString("email")
			avatar, _ := cmd.Flags().GetString("avatar")

			return withBackend(cmd, func(ctx context.Context, backend ports.Backend, log *logger.Logger) error {
				profile, err := backend.FetchProfile(ctx)
				if err != nil {
					return err
				}

				var patch entities.ProfilePatch
				if cmd.Flags().Changed("username") {
					patch.Username = &username
				}
				if cmd.Flags().Changed("email") {
					patch.Email = &email
				}
				if patch.Username != nil || patch.Email != nil {
					if profile, err = backend.UpdateProfile(ctx, patch); err != nil {
						return err
					}
				}

				if avatar != "" {
					data, err := os.ReadFile(avatar)
					if err != nil {
						return fmt.Errorf("failed to read avatar: %w", err)
					}
					if profile, err = backend.UploadAvatar(ctx, data); err != nil {
						return err
					}
				}

				printProfile(cmd, profile)
				return nil
			})
		},
	}
	cmd.Flags().String("username", "", "New username")
	cmd.Flags().String("email", "", "New profile email")
	cmd.Flags().String("avatar", "", "Image file to upload as the profile picture")
	return cmd
}

func runBoard(cmd *cobra.Command, opts ...tui.Option) error {
	notifier := &tui.Notifier{}
	return withStore(cmd, notifier, func(ctx context.Context, s *board.Store, log *logger.Logger) error {
		return tui.Run(ctx, s, notifier, opts...)
	})
}

// clientLogger keeps the terminal clean: the board owns the screen, so logs
// only go to a file when one is configured.
func clientLogger(cfg *config.Config) (*logger.Logger, error) {
	if cfg.Logger.Output == "file" && cfg.Logger.Filename != "" {
		return logger.New(cfg.Logger)
	}
	return logger.NewNop(), nil
}

func openBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (ports.Backend, error) {
	if cfg.Client.Mode() == config.ClientModeRemote {
		if cfg.Client.Token == "" {
			return nil, errors.New("not signed in: run eyetrack login and set EYETRACK_TOKEN")
		}
		return remote.New(cfg.Client, log.WithComponent("remote")), nil
	}

	store, err := local.Open(ctx, cfg.Client.LocalPath, log.WithComponent("local"))
	if err != nil {
		return nil, err
	}
	return store, nil
}

func withBackend(cmd *cobra.Command, fn func(ctx context.Context, backend ports.Backend, log *logger.Logger) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := clientLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	ctx := cmd.Context()
	backend, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	return fn(ctx, backend, log)
}

func withStore(cmd *cobra.Command, notifier board.Notifier, fn func(ctx context.Context, s *board.Store, log *logger.Logger) error) error {
	return withBackend(cmd, func(ctx context.Context, backend ports.Backend, log *logger.Logger) error {
		s := board.New(backend, board.WithNotifier(notifier), board.WithLogger(log))
		if err := s.Refresh(ctx); err != nil {
			return fmt.Errorf("failed to load board: %w", err)
		}
		err := fn(ctx, s, log)
		s.Wait()
		return err
	})
}

func parseMonth(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: expected YYYY-MM", value)
	}
	return t, nil
}

func printMonth(cmd *cobra.Command, projects []entities.Project, first time.Time) {
	out := cmd.OutOrStdout()
	byDay := board.EventsInMonth(board.CalendarEvents(projects), first.Year(), first.Month())

	fmt.Fprintln(out, first.Format("January 2006"))
	if len(byDay) == 0 {
		fmt.Fprintln(out, "  No tasks due")
		return
	}

	days := make([]int, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Ints(days)
	for _, d := range days {
		for _, e := range byDay[d] {
			fmt.Fprintf(out, "  %s  %-8s  %s  (%s)\n",
				e.Date.Format("Mon 02"), entities.ColumnLabel(e.Status), e.Title, e.ProjectName)
		}
	}
}

func printProfile(cmd *cobra.Command, p *entities.UserProfile) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Username: %s\n", p.Username)
	fmt.Fprintf(out, "Email: %s\n", p.Email)
	if p.ProfilePicture != "" && len(p.ProfilePicture) < 200 {
		fmt.Fprintf(out, "Picture: %s\n", p.ProfilePicture)
	} else if p.ProfilePicture != "" {
		fmt.Fprintln(out, "Picture: stored locally")
	}
	if !p.CreatedAt.IsZero() {
		fmt.Fprintf(out, "Member since: %s\n", p.CreatedAt.Format("January 2, 2006"))
	}
}
