// Command importcsv loads the legacy YaMDb CSV dumps into MongoDB.
//
//	importcsv --data static/data [--mongo-uri ...] [--mongo-db ...]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/pflag"

	"github.com/yamdb/yamdb-api/internal/core/service"
	"github.com/yamdb/yamdb-api/internal/importer"
	"github.com/yamdb/yamdb-api/internal/infrastructure/db/mongo"
	"github.com/yamdb/yamdb-api/internal/pkg/config"
	"github.com/yamdb/yamdb-api/pkg/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "importcsv:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connection defaults come from the same variables the API reads.
	var mongoCfg config.MongoConfig
	if err := envconfig.Process(ctx, &mongoCfg); err != nil {
		return err
	}

	fs := pflag.NewFlagSet("importcsv", pflag.ContinueOnError)
	dataDir := fs.StringP("data", "d", "static/data", "directory holding the CSV files")
	mongoURI := fs.String("mongo-uri", mongoCfg.URI, "MongoDB connection URI")
	mongoDB := fs.String("mongo-db", mongoCfg.Database, "MongoDB database name")
	logLevel := fs.String("log-level", "info", "log level: trace, debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := logger.Init(logger.Options{Level: *logLevel, Pretty: true, Service: "importcsv"})

	client, db, err := mongo.Connect(ctx, mongo.Config{URI: *mongoURI, Database: *mongoDB})
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	counters := mongo.NewCounters(db)
	categories := mongo.NewCategoryRepository(db)
	genres := mongo.NewGenreRepository(db)
	titles := mongo.NewTitleRepository(db, counters)
	reviews := mongo.NewReviewRepository(db, counters)
	comments := mongo.NewCommentRepository(db, counters)

	imp := importer.New(importer.Stores{
		Users:      mongo.NewUserRepository(db, counters),
		Categories: categories,
		Genres:     genres,
		Titles:     titles,
		Reviews:    reviews,
		Comments:   comments,
		Sequences:  counters,
		Ratings:    service.NewCatalogService(categories, genres, titles, reviews, comments, log),
	}, log)

	report, err := imp.Run(ctx, os.DirFS(*dataDir))
	if report != nil {
		printReport(report)
	}
	return err
}

func printReport(report *importer.Report) {
	log := logger.Get()
	files := make([]string, 0, len(report.Inserted)+len(report.Skipped))
	seen := map[string]bool{}
	for _, m := range []map[string]int{report.Inserted, report.Skipped} {
		for f := range m {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	sort.Strings(files)
	for _, f := range files {
		log.Info().
			Str("file", f).
			Int("inserted", report.Inserted[f]).
			Int("skipped", report.Skipped[f]).
			Msg("summary")
	}
}
