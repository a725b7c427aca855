// Command seed bulk-loads catalog files into the store, exports the catalog
// back out, and issues development bearer tokens.
//
//	seed -file data/locations.json [-skip-existing]
//	seed -export backup.yaml
//	seed -token user-1 [-email user-1@example.com] [-ttl 24h]
//
// DATABASE_URL selects the store (postgres:// or sqlite://). -token signs
// with JWT_SECRET and does not touch the store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pkordes/quietlocations/backend/internal/auth"
	"github.com/pkordes/quietlocations/backend/internal/seed"
	"github.com/pkordes/quietlocations/backend/internal/service"
	"github.com/pkordes/quietlocations/backend/internal/store"
)

func main() {
	var (
		file         = flag.String("file", "", "catalog file to import (.json, .yaml or .yml)")
		skipExisting = flag.Bool("skip-existing", false, "skip records whose id already exists instead of failing")
		exportPath   = flag.String("export", "", "write the whole catalog to this file (.json, .yaml or .yml)")
		tokenUser    = flag.String("token", "", "print a bearer token for this user id and exit")
		tokenEmail   = flag.String("email", "", "email claim for -token")
		tokenTTL     = flag.Duration("ttl", 24*time.Hour, "lifetime of the -token credential")
		databaseURL  = flag.String("database", os.Getenv("DATABASE_URL"), "store URL; defaults to $DATABASE_URL")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(context.Background(), logger, options{
		file:         *file,
		skipExisting: *skipExisting,
		exportPath:   *exportPath,
		tokenUser:    *tokenUser,
		tokenEmail:   *tokenEmail,
		tokenTTL:     *tokenTTL,
		databaseURL:  *databaseURL,
	}); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	file         string
	skipExisting bool
	exportPath   string
	tokenUser    string
	tokenEmail   string
	tokenTTL     time.Duration
	databaseURL  string
}

func run(ctx context.Context, log *slog.Logger, opts options) error {
	if opts.tokenUser != "" {
		v, err := auth.NewVerifier(os.Getenv("JWT_SECRET"))
		if err != nil {
			return err
		}
		token, err := v.Issue(opts.tokenUser, opts.tokenEmail, opts.tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	}

	if opts.file == "" && opts.exportPath == "" {
		flag.Usage()
		return errors.New("one of -file, -export or -token is required")
	}
	if opts.databaseURL == "" {
		return errors.New("DATABASE_URL not set")
	}

	db, err := store.Open(ctx, opts.databaseURL, log)
	if err != nil {
		return err
	}
	defer db.Close()
	catalog := service.NewCatalogService(db)

	if opts.file != "" {
		res, err := seed.ImportFile(ctx, catalog, opts.file, opts.skipExisting)
		if err != nil {
			return err
		}
		log.Info("seed completed", "file", opts.file, "created", res.Created, "skipped", res.Skipped)
	}

	if opts.exportPath != "" {
		n, err := seed.ExportFile(ctx, catalog, opts.exportPath)
		if err != nil {
			return err
		}
		log.Info("export completed", "file", opts.exportPath, "locations", n)
	}
	return nil
}
