// Command burger is a CLI client for the Stellar Burgers storefront API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/VolegzhaninaEM/stellar-burger-sub000/config"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/api"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/auth"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/burger"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/feed"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/model"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/order"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/tokenstore"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `burger CLI
Usage:
  burger [-config file] [-api url] <cmd> [args]

Commands:
  version
  register    -email <e> -password <p> -name <n>   (saves tokens)
  login       -email <e> -password <p>             (saves tokens)
  logout
  user                                             (prints profile)
  update-user [-email e] [-name n] [-password p]
  ingredients
  order       -bun <id> [-with id,id,...]
  status      -n <number>
  feed        [-user]                              (streams until Ctrl-C)
`)
	os.Exit(2)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func newLogger(cfg *config.Config) *zap.Logger {
	if cfg.Log.Pretty {
		log, _ := zap.NewDevelopment()
		return log
	}
	log, _ := zap.NewProduction()
	return log
}

// session builds the auth manager and restores state from disk.
func session(ctx context.Context, cfg *config.Config, client *api.Client, log *zap.Logger) *auth.Manager {
	store := tokenstore.New(cfg.TokenDir)
	mgr := auth.NewManager(client, store, log)
	mgr.Initialize(ctx)
	return mgr
}

// main dispatches subcommands against the configured API.
func main() {
	cfgPath := flag.String("config", "", "config file (YAML)")
	apiBase := flag.String("api", "", "API base URL override")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fail(err)
	}
	if *apiBase != "" {
		cfg.API.BaseURL = *apiBase
	}

	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	client := api.New(cfg.API.BaseURL, &http.Client{Timeout: cfg.API.Timeout})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cmd {

	case "version":
		fmt.Printf("burger %s (%s)\n", version, buildDate)

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		email := fs.String("email", "", "email")
		password := fs.String("password", "", "password")
		name := fs.String("name", "", "display name")
		_ = fs.Parse(flag.Args()[1:])
		if *email == "" || *password == "" || *name == "" {
			fmt.Fprintln(os.Stderr, "need -email, -password and -name")
			os.Exit(1)
		}

		mgr := session(ctx, cfg, client, log)
		user, err := mgr.Register(ctx, *email, *password, *name)
		if err != nil {
			fail(err)
		}
		printJSON(user)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "email")
		password := fs.String("password", "", "password")
		_ = fs.Parse(flag.Args()[1:])
		if *email == "" || *password == "" {
			fmt.Fprintln(os.Stderr, "need -email and -password")
			os.Exit(1)
		}

		mgr := session(ctx, cfg, client, log)
		user, err := mgr.Login(ctx, *email, *password)
		if err != nil {
			fail(err)
		}
		printJSON(user)

	case "logout":
		mgr := session(ctx, cfg, client, log)
		mgr.Logout(ctx)
		fmt.Println("ok")

	case "user":
		mgr := session(ctx, cfg, client, log)
		user, err := mgr.FetchUser(ctx)
		if err != nil {
			fail(err)
		}
		printJSON(user)

	case "update-user":
		fs := flag.NewFlagSet("update-user", flag.ExitOnError)
		email := fs.String("email", "", "new email")
		name := fs.String("name", "", "new display name")
		password := fs.String("password", "", "new password")
		_ = fs.Parse(flag.Args()[1:])

		var patch model.UserPatch
		if *email != "" {
			patch.Email = email
		}
		if *name != "" {
			patch.Name = name
		}
		if *password != "" {
			patch.Password = password
		}
		if patch.Email == nil && patch.Name == nil && patch.Password == nil {
			fmt.Fprintln(os.Stderr, "nothing to update")
			os.Exit(1)
		}

		mgr := session(ctx, cfg, client, log)
		user, err := mgr.UpdateUser(ctx, patch)
		if err != nil {
			fail(err)
		}
		printJSON(user)

	case "ingredients":
		data, err := client.Ingredients(ctx)
		if err != nil {
			fail(err)
		}
		printJSON(data)

	case "order":
		fs := flag.NewFlagSet("order", flag.ExitOnError)
		bunID := fs.String("bun", "", "bun ingredient id")
		with := fs.String("with", "", "comma-separated filling ids")
		_ = fs.Parse(flag.Args()[1:])
		if *bunID == "" {
			fmt.Fprintln(os.Stderr, "need -bun")
			os.Exit(1)
		}

		catalog, err := client.Ingredients(ctx)
		if err != nil {
			fail(err)
		}
		byID := make(map[string]model.Ingredient, len(catalog))
		for _, ing := range catalog {
			byID[ing.ID] = ing
		}

		b := burger.New()
		bun, ok := byID[*bunID]
		if !ok {
			fail(fmt.Errorf("unknown bun %q", *bunID))
		}
		b.SetBun(bun)
		if *with != "" {
			for _, id := range strings.Split(*with, ",") {
				ing, ok := byID[strings.TrimSpace(id)]
				if !ok {
					fail(fmt.Errorf("unknown ingredient %q", id))
				}
				b.AddIngredient(ing)
			}
		}

		mgr := session(ctx, cfg, client, log)
		svc := order.NewService(client, mgr, b)
		number, err := svc.Place(ctx)
		if err != nil {
			fail(err)
		}
		fmt.Printf("order %d accepted, total %d\n", number, b.TotalPrice())

	case "status":
		fs := flag.NewFlagSet("status", flag.ExitOnError)
		number := fs.Int("n", 0, "order number")
		_ = fs.Parse(flag.Args()[1:])
		if *number == 0 {
			fmt.Fprintln(os.Stderr, "need -n")
			os.Exit(1)
		}

		o, err := client.Order(ctx, *number)
		if err != nil {
			fail(err)
		}
		printJSON(o)

	case "feed":
		fs := flag.NewFlagSet("feed", flag.ExitOnError)
		personal := fs.Bool("user", false, "stream the personal feed")
		_ = fs.Parse(flag.Args()[1:])

		runFeed(cfg, client, log, *personal)

	default:
		usage()
	}
}

// runFeed streams feed snapshots to stdout until the process is interrupted.
func runFeed(cfg *config.Config, client *api.Client, log *zap.Logger, personal bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wsURL := cfg.Feed.PublicURL
	token := ""
	if personal {
		wsURL = cfg.Feed.UserURL
		mgr := session(ctx, cfg, client, log)
		token = mgr.AccessToken()
		if token == "" {
			fail(fmt.Errorf("login required for the personal feed"))
		}
	}

	done := make(chan struct{})
	ch := feed.New(wsURL, func(ev feed.Event) {
		switch ev.Type {
		case feed.EventConnected:
			fmt.Fprintln(os.Stderr, "connected")
		case feed.EventSnapshot:
			printJSON(ev.Snapshot)
		case feed.EventError:
			fmt.Fprintln(os.Stderr, "feed:", ev.Message)
			if ev.Terminal {
				close(done)
			}
		case feed.EventDisconnected:
			fmt.Fprintln(os.Stderr, "disconnected")
		}
	}, feed.Options{
		RetryBase:  cfg.Feed.RetryBase,
		MaxRetries: cfg.Feed.MaxRetries,
		Logger:     log,
	})

	ch.Connect(token)
	select {
	case <-ctx.Done():
	case <-done:
		os.Exit(1)
	}
	ch.Disconnect()
}
