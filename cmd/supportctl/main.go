package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/sumo/backend/internal/config"
	"github.com/sumo/backend/internal/logging"
	"github.com/sumo/backend/internal/middleware"
	"github.com/sumo/backend/internal/services"
	"github.com/sumo/backend/internal/storage"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	return newApp().Run(args)
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "supportctl",
		Usage:   "operator tool for the support backend",
		Version: versioninfo.Short(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "database to connect to, sqlite:// or postgres://",
				Value:   "sqlite://data/support.db",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(cctx *cli.Context) error {
			_, err := logging.Setup(logging.Options{Level: cctx.String("log-level")})
			return err
		},
		Commands: []*cli.Command{
			cmdMigrate,
			cmdContributors,
			cmdShorten,
			cmdGrant,
			cmdRevoke,
			cmdToken,
		},
	}
}

func openDB(cctx *cli.Context) (*gorm.DB, error) {
	return storage.SetupDatabase(cctx.String("database-url"), 1)
}

var cmdMigrate = &cli.Command{
	Name:  "migrate",
	Usage: "create or update database tables",
	Action: func(cctx *cli.Context) error {
		db, err := openDB(cctx)
		if err != nil {
			return err
		}
		if err := storage.Migrate(db); err != nil {
			return err
		}
		fmt.Fprintln(cctx.App.Writer, "database migrated")
		return nil
	},
}

var cmdContributors = &cli.Command{
	Name:  "contributors",
	Usage: "list knowledge base users who created or reviewed revisions in a window",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "from", Usage: "start of the window (inclusive)", Required: true},
		&cli.StringFlag{Name: "to", Usage: "end of the window (exclusive)"},
		&cli.StringFlag{Name: "locale"},
		&cli.StringFlag{Name: "product", Usage: "product slug"},
		&cli.BoolFlag{Name: "count", Usage: "only print the number of contributors"},
	},
	Action: func(cctx *cli.Context) error {
		filter := services.ContributorFilter{
			Locale:  cctx.String("locale"),
			Product: cctx.String("product"),
		}
		var err error
		if filter.From, err = dateparse.ParseIn(cctx.String("from"), time.UTC); err != nil {
			return fmt.Errorf("parsing --from: %w", err)
		}
		if to := cctx.String("to"); to != "" {
			if filter.To, err = dateparse.ParseIn(to, time.UTC); err != nil {
				return fmt.Errorf("parsing --to: %w", err)
			}
		}

		db, err := openDB(cctx)
		if err != nil {
			return err
		}
		svc := services.NewContributorService(db)

		if cctx.Bool("count") {
			n, err := svc.NumActiveContributors(cctx.Context, filter)
			if err != nil {
				return err
			}
			fmt.Fprintln(cctx.App.Writer, n)
			return nil
		}

		users, err := svc.ActiveContributors(cctx.Context, filter)
		if err != nil {
			return err
		}
		for _, u := range users {
			fmt.Fprintf(cctx.App.Writer, "%d\t%s\n", u.ID, u.Username)
		}
		return nil
	},
}

var cmdShorten = &cli.Command{
	Name:      "shorten",
	Usage:     "shorten a URL through bitly",
	ArgsUsage: "<url>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "api-url", Value: config.DefaultBitlyAPIURL, EnvVars: []string{"BITLY_API_URL"}},
		&cli.StringFlag{Name: "login", EnvVars: []string{"BITLY_LOGIN"}},
		&cli.StringFlag{Name: "api-key", EnvVars: []string{"BITLY_API_KEY"}},
		&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, EnvVars: []string{"BITLY_TIMEOUT"}},
	},
	Action: func(cctx *cli.Context) error {
		longURL := cctx.Args().First()
		if longURL == "" {
			return errors.New("need to provide a URL as an argument")
		}
		b := services.NewBitlyShortener(cctx.String("api-url"), cctx.String("login"), cctx.String("api-key"), cctx.Duration("timeout"))
		if b.Login == "" || b.APIKey == "" {
			return errors.New("BITLY_LOGIN and BITLY_API_KEY must be set")
		}

		short, err := b.GenerateShortURL(cctx.Context, longURL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cctx.App.Writer, short)
		return nil
	},
}

var cmdGrant = &cli.Command{
	Name:      "grant",
	Usage:     "grant permissions to a user",
	ArgsUsage: "<user-id> <codename>...",
	Action: func(cctx *cli.Context) error {
		return changePermissions(cctx, func(svc *services.PermissionService, ctx context.Context, userID, codename string) error {
			return svc.Grant(ctx, userID, codename)
		})
	},
}

var cmdRevoke = &cli.Command{
	Name:      "revoke",
	Usage:     "revoke permissions from a user",
	ArgsUsage: "<user-id> <codename>...",
	Action: func(cctx *cli.Context) error {
		return changePermissions(cctx, func(svc *services.PermissionService, ctx context.Context, userID, codename string) error {
			return svc.Revoke(ctx, userID, codename)
		})
	},
}

func changePermissions(cctx *cli.Context, apply func(*services.PermissionService, context.Context, string, string) error) error {
	if cctx.NArg() < 2 {
		return errors.New("need a user id and at least one permission codename")
	}
	userID := cctx.Args().First()

	db, err := openDB(cctx)
	if err != nil {
		return err
	}
	svc := services.NewPermissionService(db, 0)

	for _, codename := range cctx.Args().Tail() {
		if err := apply(svc, cctx.Context, userID, codename); err != nil {
			return fmt.Errorf("%s: %w", codename, err)
		}
	}

	perms, err := svc.Permissions(cctx.Context, userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cctx.App.Writer, "%s: %s\n", userID, strings.Join(perms, ", "))
	return nil
}

var cmdToken = &cli.Command{
	Name:  "token",
	Usage: "issue an API token signed with JWT_SECRET",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "user", Required: true},
		&cli.DurationFlag{Name: "ttl", Usage: "token lifetime, defaults to JWT_EXPIRATION"},
	},
	Action: func(cctx *cli.Context) error {
		cfg := config.Load()
		if cfg.JWTSecret == "" {
			return errors.New("JWT_SECRET must be set")
		}
		ttl := cfg.JWTExpiration
		if cctx.IsSet("ttl") {
			ttl = cctx.Duration("ttl")
		}

		token, err := middleware.IssueToken(cfg.JWTSecret, cctx.String("user"), ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cctx.App.Writer, token)
		return nil
	},
}
