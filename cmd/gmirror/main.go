// The gmirror command mirrors the mailboxes of an organizational
// domain's users into a local database, incrementally, and publishes
// each completed run to NATS.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/matta/gmirror/internal/admindir"
	"github.com/matta/gmirror/internal/directory"
	"github.com/matta/gmirror/internal/gmail"
	"github.com/matta/gmirror/internal/googlehttp"
	"github.com/matta/gmirror/internal/homedir"
	"github.com/matta/gmirror/internal/natssink"
	"github.com/matta/gmirror/internal/persist"
	"github.com/matta/gmirror/internal/sync"
	"github.com/matta/gmirror/internal/tracehttp"
	"github.com/matta/gmirror/internal/transform"

	_ "github.com/mattn/go-sqlite3"
)

var (
	flagTrace   = flag.Bool("T", false, "request debug tracing")
	flagDomain  = flag.String("domain", "", "organizational domain to mirror")
	flagDB      = flag.String("db", "", "database path (default ~/.gmirror.db)")
	flagNATS    = flag.String("nats", "", "NATS server URL, empty to disable publishing")
	flagEnvFile = flag.String("env-file", "", "env file with OAuth credentials")
)

func run() error {
	if *flagDomain == "" {
		return errors.New("-domain must be provided")
	}
	if *flagEnvFile != "" {
		if err := godotenv.Load(*flagEnvFile); err != nil {
			return errors.Wrap(err, "unable to load env file")
		}
	}

	ctx := context.Background()

	dbPath := *flagDB
	if dbPath == "" {
		dbPath = filepath.Join(homedir.Get(), ".gmirror.db")
	}
	store, err := persist.Open(ctx, dbPath)
	if err != nil {
		return errors.Wrap(err, "unable to initialize database")
	}
	defer store.Close()

	events := []sync.Events{store}
	if *flagNATS != "" {
		sink, err := natssink.New(*flagNATS)
		if err != nil {
			return errors.Wrap(err, "unable to initialize NATS sink")
		}
		defer sink.Close()
		events = append(events, sink)
	}

	client, err := googlehttp.New(ctx, gmail.ReadonlyScope, admindir.ReadonlyScope)
	if err != nil {
		return errors.Wrap(err, "unable to initialize Google HTTP client")
	}

	mail, err := gmail.New(ctx, client)
	if err != nil {
		return errors.Wrap(err, "unable to initialize GMail")
	}
	dir, err := admindir.New(ctx, client)
	if err != nil {
		return errors.Wrap(err, "unable to initialize directory")
	}

	resolver := directory.New(dir, *flagDomain)
	engine := sync.New(mail, transform.New(*flagDomain), sync.MultiEvents(events...))

	ids, err := resolver.UserIDs(ctx)
	if err != nil {
		return errors.Wrap(err, "unable to resolve domain roster")
	}
	log.Printf("resolved %d users in %v", len(ids), *flagDomain)

	for _, id := range ids {
		inbox, err := resolver.PrimaryEmailByUserID(ctx, id)
		if err != nil {
			return err
		}
		if err := syncUser(ctx, engine, store, mail, inbox); err != nil {
			return errors.Wrapf(err, "unable to synchronize %v", inbox)
		}
	}
	return nil
}

// syncUser runs one synchronization for a mailbox: a catch-up run
// over the full message listing when no watermark has been persisted
// yet, an incremental run over the change feed otherwise.
func syncUser(ctx context.Context, engine *sync.Engine, store *persist.Store, mail *gmail.Service, user string) error {
	since, err := store.LatestHistoryID(ctx, user)
	if err != nil {
		return err
	}

	if since == 0 {
		log.Printf("catch-up sync for %v", user)
		var msgIDs []string
		err := mail.ListMessageIDs(ctx, user, func(id string) error {
			msgIDs = append(msgIDs, id)
			return nil
		})
		if err != nil {
			return err
		}
		return engine.SyncFromIDs(ctx, user, msgIDs)
	}

	log.Printf("incremental sync for %v from %d", user, since)
	deltas, err := mail.ListHistory(ctx, user, since)
	if err != nil {
		return err
	}
	return engine.SyncFromHistory(ctx, user, deltas)
}

func main() {
	flag.Parse()
	if *flagTrace {
		tracehttp.WrapDefaultTransport()
	}

	if err := run(); err != nil {
		log.Fatalf("Failed: %v\n", err)
	}
	fmt.Print("Success!\n")
	os.Exit(0)
}
