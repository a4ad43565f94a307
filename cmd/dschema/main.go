// Command dschema reflects a database schema, profiles its columns and
// renders the result in one or more text formats.
//
// Usage:
//
//	dschema -driver sqlite -dsn heroes.db -format ddl,profile_report -out build
//	dschema -config dschema.yaml -serve
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/koustreak/dschema/internal/config"
	"github.com/koustreak/dschema/internal/database"
	"github.com/koustreak/dschema/internal/logger"
	"github.com/koustreak/dschema/internal/render"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		driver     = flag.String("driver", "", "database driver: postgres, mysql or sqlite")
		dsn        = flag.String("dsn", "", "database connection string")
		dbSchema   = flag.String("schema", "", "schema to reflect")
		formats    = flag.String("format", "", "comma-separated output formats: "+kindList())
		outDir     = flag.String("out", "", "directory for rendered files; - writes to stdout")
		noProfile  = flag.Bool("no-profile", false, "reflect only, skip profiling")
		publish    = flag.Bool("publish", false, "upload outputs and sketches to the configured store")
		serve      = flag.Bool("serve", false, "serve the result over HTTP after the run")
		addr       = flag.String("addr", "", "HTTP listen address")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath, func(c *config.Config) {
		if *driver != "" {
			c.Database.Driver = database.Driver(*driver)
		}
		if *dsn != "" {
			c.Database.DSN = *dsn
		}
		if *dbSchema != "" {
			c.Database.Schema = *dbSchema
		}
		if *formats != "" {
			c.Output.Formats = strings.Split(*formats, ",")
		}
		if *outDir == "-" {
			c.Output.Dir = ""
		} else if *outDir != "" {
			c.Output.Dir = *outDir
		}
		if *publish {
			c.Output.Publish = true
		}
		if *serve {
			c.Server.Enabled = true
		}
		if *addr != "" {
			c.Server.Addr = *addr
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "dschema: %v\n", err)
		os.Exit(2)
	}

	log := logger.New(&cfg.Log).Named("dschema")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &app{cfg: cfg, log: log, stdout: os.Stdout, skipProfile: *noProfile}
	if err := app.run(ctx); err != nil {
		log.ErrorWith("run failed", err, nil)
		os.Exit(1)
	}
}

func kindList() string {
	kinds := render.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
