package main

import (
	"log"
	"os"

	"github.com/abiiranathan/pdfhighlight/cli"
	"github.com/abiiranathan/pdfhighlight/pdf"
	"github.com/abiiranathan/pdfhighlight/server"
)

// Default configuration for the CLI
var config = &cli.DefaultConfig

func startServer() {
	logger, closeLog := cli.SetupLogger(config)
	defer closeLog()

	store := cli.OpenStore(config)
	defer store.Close()

	server.Run(config, store, logger)
}

func main() {
	log.SetPrefix("[pdfhighlight]: ")
	log.SetFlags(log.Lshortfile)

	// Set the locale to the system's default
	pdf.SetLocale()

	// The config file is loaded first so that flags override it.
	if path := cli.ConfigPath(os.Args); path != "" {
		if err := cli.LoadConfig(path, config); err != nil {
			log.Fatalln(err)
		}
	}

	// Parse the command line arguments
	ctx := cli.DefineFlags(config, startServer)
	subcmd, err := ctx.Parse(os.Args)
	if err != nil {
		log.Fatalln(err)
	}

	// If the subcommand is nil, print the usage and exit
	if subcmd == nil {
		ctx.PrintUsage(os.Stdout)
		os.Exit(1)
	}

	// Run the subcommand
	subcmd.Handler()
}
