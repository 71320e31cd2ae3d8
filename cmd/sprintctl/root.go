package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"skillsprint/internal/config"
	"skillsprint/internal/database"
	"skillsprint/internal/models"
	"skillsprint/internal/progress"
	"skillsprint/internal/repository"
	"skillsprint/internal/service"
	"skillsprint/internal/ui"
	"skillsprint/migrations"
)

// passphraseEnv lets scripts supply the backup passphrase without a terminal
const passphraseEnv = "SPRINTCTL_PASSPHRASE"

type app struct {
	in  io.Reader
	out *ui.Printer

	dbType  string
	dbPath  string
	asOf    string
	verbose bool

	cfg *config.Config
	db  *database.DB

	// readPassword prompts without echo
	readPassword func(prompt string) (string, error)
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	a := &app{in: in, out: ui.New(out, errOut)}
	a.readPassword = func(prompt string) (string, error) {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return "", fmt.Errorf("a passphrase is required: run in a terminal or set %s", passphraseEnv)
		}
		fmt.Fprint(errOut, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(errOut)
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		return string(b), nil
	}
	return a
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sprintctl",
		Short:         "SkillSprint operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !a.verbose {
				log.SetOutput(io.Discard)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.SetIn(a.in)

	flags := root.PersistentFlags()
	flags.StringVar(&a.dbType, "db-type", "", "database type: sqlite, postgres or mysql (default from DATABASE_TYPE)")
	flags.StringVar(&a.dbPath, "db-path", "", "SQLite database path (default from DB_PATH)")
	flags.StringVar(&a.asOf, "as-of", "", "act as if today were this date (YYYY-MM-DD)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "show service logs")

	root.AddCommand(
		a.migrateCmd(),
		a.seedCmd(),
		a.backupCmd(),
		a.streakCmd(),
		a.progressCmd(),
		a.sprintCmd(),
		a.reportCmd(),
		a.userCmd(),
	)
	return root
}

// config loads configuration once, applying command line overrides
func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if a.dbType != "" {
		cfg.DatabaseType = a.dbType
	}
	if a.dbPath != "" {
		cfg.DatabasePath = a.dbPath
	}
	a.cfg = cfg
	return cfg, nil
}

// open connects to the database and brings the schema up to date
func (a *app) open() (*database.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(migrations.Source(cfg.MigrationsPath)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	a.db = db
	return db, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
}

func (a *app) progressService(db *database.DB) (*service.ProgressService, error) {
	loc := a.cfg.Location()
	svc := service.NewProgressService(db, loc, nil, nil)
	if a.asOf != "" {
		d, err := progress.ParseDate(a.asOf)
		if err != nil {
			return nil, err
		}
		noon := time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, loc)
		svc.SetClock(func() time.Time { return noon })
	}
	return svc, nil
}

var errUserNotFound = errors.New("user not found")

func (a *app) lookupUser(db *database.DB, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("--user is required")
	}
	user, err := repository.NewUserRepository(db).GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", email, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: %s", errUserNotFound, email)
	}
	return user, nil
}

// passphrase returns the backup passphrase from the environment or a prompt.
// With confirm set the prompt is repeated and both entries must match.
func (a *app) passphrase(confirm bool) (string, error) {
	if p := os.Getenv(passphraseEnv); p != "" {
		return p, nil
	}

	p, err := a.readPassword("Passphrase: ")
	if err != nil {
		return "", err
	}
	if p == "" {
		return "", errors.New("passphrase must not be empty")
	}
	if confirm {
		again, err := a.readPassword("Confirm passphrase: ")
		if err != nil {
			return "", err
		}
		if again != p {
			return "", errors.New("passphrases do not match")
		}
	}
	return p, nil
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.open(); err != nil {
				return err
			}
			a.out.Ok("Migrations up to date (%s)", a.cfg.DatabaseType)
			return nil
		},
	}
}

func (a *app) seedCmd() *cobra.Command {
	var termsFile string
	var download bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed curated sprints and the blocked terms list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}

			created, err := service.NewSprintService(db, nil).SeedCuratedSprints()
			if err != nil {
				return err
			}
			a.out.Ok("Curated sprints: %d created", created)

			switch {
			case termsFile != "":
				f, err := os.Open(termsFile)
				if err != nil {
					return fmt.Errorf("failed to open blocked terms file: %w", err)
				}
				defer f.Close()
				added, err := db.LoadBlockedTerms(f)
				if err != nil {
					return err
				}
				a.out.Ok("Blocked terms: %d added from %s", added, termsFile)
			case download:
				if err := db.SeedBlockedTerms(a.cfg.BlockedTermsURL); err != nil {
					return err
				}
				a.out.Ok("Blocked terms seeded")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&termsFile, "blocked-terms", "", "load blocked terms from a file, one per line")
	cmd.Flags().BoolVar(&download, "download", false, "download the blocked terms list when the table is empty")
	return cmd
}
