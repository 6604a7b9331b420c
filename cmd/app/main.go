package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	sqliteadapter "github.com/kunometrika/bmitrack/internal/adapters/db/sqlite"
	httpadapter "github.com/kunometrika/bmitrack/internal/adapters/http"
	"github.com/kunometrika/bmitrack/internal/adapters/notify"
	rpcadapter "github.com/kunometrika/bmitrack/internal/adapters/rpcjson"
	reststore "github.com/kunometrika/bmitrack/internal/adapters/store/rest"
	"github.com/kunometrika/bmitrack/internal/application"
	"github.com/kunometrika/bmitrack/internal/config"
	"github.com/kunometrika/bmitrack/internal/domain"
	"github.com/urfave/cli/v3"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "bmitrack",
		Usage: "BMI calculator server and CLI",
		Commands: []*cli.Command{
			serverCommand(),
			computeCommand(),
			historyCommand(),
			emailCommand(),
			sessionCommand(),
			configCommand(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runServer(ctx, cfg)
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run HTTP server and JSON-RPC socket",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "HTTP listen address (overrides BMITRACK_ADDR)"},
			&cli.StringFlag{Name: "rpc-socket", Usage: "JSON-RPC unix socket path (overrides BMITRACK_RPC_SOCKET)"},
			&cli.StringFlag{Name: "db-path", Usage: "SQLite database path (overrides BMITRACK_DB_PATH)"},
			&cli.StringFlag{Name: "store-url", Usage: "hosted store base URL (overrides BMITRACK_STORE_URL)"},
			&cli.StringFlag{Name: "store-key", Usage: "hosted store access key (overrides BMITRACK_STORE_KEY)"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if v := c.String("addr"); v != "" {
				cfg.Addr = v
			}
			if v := c.String("rpc-socket"); v != "" {
				cfg.RPCSocket = v
			}
			if v := c.String("db-path"); v != "" {
				cfg.DBPath = v
			}
			if v := c.String("store-url"); v != "" {
				cfg.StoreURL = v
			}
			if v := c.String("store-key"); v != "" {
				cfg.StoreKey = v
			}
			return runServer(ctx, cfg)
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config) error {
	var repo domain.EntryRepository
	var dispatcher domain.Dispatcher

	switch {
	case cfg.RemoteStoreEnabled():
		repo = reststore.NewEntryRepository(cfg.StoreURL, cfg.StoreKey)
		dispatcher = notify.NewDispatcher(cfg.StoreURL, cfg.StoreKey)
		log.Printf("using hosted store at %s", cfg.StoreURL)
	case cfg.LocalStoreEnabled():
		db, err := sqliteadapter.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
			return err
		}
		repo = sqliteadapter.NewEntryRepository(db)
		log.Printf("using sqlite store at %s", cfg.DBPath)
	default:
		log.Printf("no store configured, results will not be persisted")
	}

	metrics := application.NewMetrics()
	entries := application.NewEntryService(repo, metrics)
	mailer := application.NewMailer(dispatcher, metrics)
	flows := application.NewFlowManager(entries, mailer, metrics)

	router := httpadapter.NewRouter(flows, entries, mailer)
	srv := &http.Server{Addr: cfg.Addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	rpcSrv, err := rpcadapter.Start(cfg.RPCSocket, entries, mailer)
	if err != nil {
		return err
	}

	defer func() {
		_ = rpcSrv.Close()
	}()
	log.Printf("json-rpc listening on unix://%s", cfg.RPCSocket)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received signal %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func measurementFlags() []cli.Flag {
	return []cli.Flag{
		&cli.FloatFlag{Name: "height", Required: true, Usage: "height value"},
		&cli.StringFlag{Name: "height-unit", Value: "cm", Usage: "cm or ft"},
		&cli.FloatFlag{Name: "weight", Required: true, Usage: "weight value"},
		&cli.StringFlag{Name: "weight-unit", Value: "kg", Usage: "kg or lbs"},
	}
}

func detailFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name", Required: true},
		&cli.StringFlag{Name: "email", Required: true},
		&cli.IntFlag{Name: "age", Required: true},
		&cli.StringFlag{Name: "gender", Required: true, Usage: "male, female or other"},
	}
}

func measurementFromFlags(c *cli.Command) measurementInput {
	return measurementInput{
		Height:     c.Float("height"),
		HeightUnit: c.String("height-unit"),
		Weight:     c.Float("weight"),
		WeightUnit: c.String("weight-unit"),
	}
}

func detailsFromFlags(c *cli.Command) detailsInput {
	return detailsInput{
		Name:   c.String("name"),
		Email:  c.String("email"),
		Age:    int(c.Int("age")),
		Gender: c.String("gender"),
	}
}

func computeCommand() *cli.Command {
	return &cli.Command{
		Name:  "compute",
		Usage: "Compute BMI from height and weight",
		Flags: append(measurementFlags(),
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var out computeResult
			if err := doCompute(ctx, cfg, measurementFromFlags(c), &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printComputeResult(out)
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Saved calculation commands",
		Commands: []*cli.Command{
			{
				Name:  "save",
				Usage: "Compute and save a result to this session's history",
				Flags: append(append(detailFlags(), measurementFlags()...),
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}),
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					session, err := cliSession()
					if err != nil {
						return err
					}
					sessionID, err := session.GetOrCreate()
					if err != nil {
						return err
					}
					var out saveResult
					err = doEntriesSave(ctx, cfg, sessionID, uuid.NewString(),
						detailsFromFlags(c), measurementFromFlags(c), &out)
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printSaveResult(out)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List saved calculations for this session",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					session, err := cliSession()
					if err != nil {
						return err
					}
					sessionID, err := session.GetOrCreate()
					if err != nil {
						return err
					}
					var out []domain.Entry
					if err := doEntriesList(ctx, cfg, sessionID, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printEntries(out)
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a saved calculation by id",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					session, err := cliSession()
					if err != nil {
						return err
					}
					sessionID, err := session.GetOrCreate()
					if err != nil {
						return err
					}
					var out map[string]any
					if err := doEntriesDelete(ctx, cfg, sessionID, uint(c.Uint("id")), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					fmt.Printf("deleted entry %d\n", c.Uint("id"))
					return nil
				},
			},
		},
	}
}

func emailCommand() *cli.Command {
	return &cli.Command{
		Name:  "email",
		Usage: "Compute BMI and email the result",
		Flags: append(append(detailFlags(), measurementFlags()...),
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var out emailResult
			if err := doEmailSend(ctx, cfg, detailsFromFlags(c), measurementFromFlags(c), &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printEmailResult(out)
			return nil
		},
	}
}

func sessionCommand() *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Anonymous session commands",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show this machine's session id, minting one if needed",
				Action: func(ctx context.Context, c *cli.Command) error {
					session, err := cliSession()
					if err != nil {
						return err
					}
					sessionID, err := session.GetOrCreate()
					if err != nil {
						return err
					}
					fmt.Println(sessionID)
					return nil
				},
			},
			{
				Name:  "clear",
				Usage: "Forget this machine's session id",
				Action: func(ctx context.Context, c *cli.Command) error {
					session, err := cliSession()
					if err != nil {
						return err
					}
					session.Clear()
					fmt.Println("session cleared")
					return nil
				},
			},
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "CLI transport configuration",
		Commands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Persist CLI transport settings",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "transport", Usage: "uds or http"},
					&cli.StringFlag{Name: "server", Usage: "HTTP server base URL"},
					&cli.StringFlag{Name: "socket", Usage: "JSON-RPC unix socket path"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if v := c.String("transport"); v != "" {
						cfg.Transport = v
					}
					if v := c.String("server"); v != "" {
						cfg.Server = v
					}
					if v := c.String("socket"); v != "" {
						cfg.Socket = v
					}
					return saveConfig(cfg)
				},
			},
			{
				Name:  "show",
				Usage: "Show CLI transport settings",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					printKV([][2]string{
						{"transport", cfg.Transport},
						{"server", cfg.Server},
						{"socket", cfg.Socket},
					})
					return nil
				},
			},
		},
	}
}

func jsonMarshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
