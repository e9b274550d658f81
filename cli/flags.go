package cli

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"

	"github.com/abiiranathan/goflag"
	"github.com/abiiranathan/pdfhighlight/database"
	"github.com/abiiranathan/pdfhighlight/logging"
)

// OpenStore connects to the configured database and creates its tables.
func OpenStore(config *Config) *database.Store {
	store, err := database.Connect(config.Database)
	if err != nil {
		log.Fatalln(err)
	}
	if err := store.CreateTables(); err != nil {
		log.Fatalln(err)
	}
	return store
}

// SetupLogger builds the configured logger. The returned func flushes and
// closes its output.
func SetupLogger(config *Config) (*slog.Logger, func()) {
	logger, out := logging.Setup(config.Log)
	slog.SetDefault(logger)
	return logger, func() { out.Close() }
}

// commandLogger is SetupLogger tagged for the CLI subcommands.
func commandLogger(config *Config) (*slog.Logger, func()) {
	logger, closeLog := SetupLogger(config)
	return logging.ForComponent(logger, logging.CompCLI), closeLog
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalln(err)
	}
}

func mustReadFragments(path string) []string {
	fragments, err := ReadFragments(path)
	if err != nil {
		log.Fatalln(err)
	}
	if len(fragments) == 0 {
		log.Fatalf("no fragments in %s\n", path)
	}
	return fragments
}

func DefineFlags(config *Config, runserver func()) *goflag.Context {
	// Flags required by multiple subcomands
	fragmentsFlag := goflag.Flag{
		FlagType:  goflag.FlagFilePath,
		Name:      "fragments",
		ShortName: "q",
		Value:     &config.Fragments,
		Usage:     "File with the fragments to locate: a JSON array or one per line",
		Required:  true,
		Validator: nil,
	}

	zoomFlag := goflag.Flag{
		FlagType:  goflag.FlagInt,
		Name:      "zoom",
		ShortName: "z",
		Value:     &config.Zoom,
		Usage:     "Layout scale in percent. Overrides the configured scale",
		Required:  false,
		Validator: nil,
	}

	// Create flag context.
	ctx := goflag.NewContext()

	// global flags
	ctx.AddFlag(goflag.FlagString, "config", "C", &config.ConfigFile,
		"TOML configuration file", false)

	ctx.AddFlag(goflag.FlagString, "db", "D", &config.Database,
		"SQLite database file", false)

	ctx.AddFlag(goflag.FlagInt, "concurrency", "c",
		&config.MaxConcurrency,
		"No of files to be processed at once",
		false, goflag.Min(1), goflag.Max(100))

	// register subcommands
	ctx.AddSubCommand("register", "Register every PDF in a directory as a reading", func() {
		logger, closeLog := commandLogger(config)
		defer closeLog()
		store := OpenStore(config)
		defer store.Close()

		n, err := Register(context.Background(), store, config.Directory)
		if err != nil {
			log.Fatalln(err)
		}
		logger.Info("registered readings", "dir", config.Directory, "new", n)
	}).AddFlag(goflag.FlagDirPath, "directory", "d", &config.Directory, "The directory to register", true)

	ctx.AddSubCommand("locate", "Locate fragments in a single PDF file", func() {
		logger, closeLog := commandLogger(config)
		defer closeLog()
		store := OpenStore(config)
		defer store.Close()

		records, err := LocateFile(context.Background(), config, store, logger,
			config.Filename, mustReadFragments(config.Fragments))
		if err != nil {
			log.Fatalln(err)
		}
		printJSON(records)
	}).AddFlag(goflag.FlagFilePath, "file", "f", &config.Filename, "The PDF file to search", true).
		AddFlagPtr(&fragmentsFlag).
		AddFlagPtr(&zoomFlag)

	ctx.AddSubCommand("locate_dir", "Locate fragments in every registered PDF of a directory", func() {
		logger, closeLog := commandLogger(config)
		defer closeLog()
		store := OpenStore(config)
		defer store.Close()

		results, err := LocateDir(context.Background(), config, store, logger,
			config.Directory, mustReadFragments(config.Fragments))
		if err != nil {
			log.Fatalln(err)
		}
		printJSON(results)
	}).AddFlag(goflag.FlagDirPath, "directory", "d", &config.Directory, "The directory to search", true).
		AddFlagPtr(&fragmentsFlag).
		AddFlagPtr(&zoomFlag)

	// Run server
	ctx.AddSubCommand("runserver", "Start the highlight backend", runserver).
		AddFlag(goflag.FlagInt, "port", "p", &config.Port, "The port to run the server on", false).
		AddFlagPtr(&zoomFlag)

	return ctx
}
