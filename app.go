package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/term"

	"library-lending/config"
	"library-lending/library"
	"library-lending/notify"
)

// app wires the client core together for one CLI run.
type app struct {
	cfg     config.Config
	log     *log.Logger
	store   *library.SQLiteStore
	session *library.Session
	api     *library.API
	auth    *library.Auth
	trigger *library.Trigger
	list    *library.ListView
	desk    *library.Desk
	cache   *library.RedisCache
	rdb     *redis.Client
	bus     *notify.Conn

	out io.Writer
	in  *bufio.Scanner
}

func newApp(ctx context.Context, in io.Reader, out io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := log.New(os.Stderr, "", log.LstdFlags)
	for _, w := range cfg.Warnings() {
		logger.Printf("[config] %s", w)
	}

	order, err := library.NewTitleOrder(cfg.SortLocale)
	if err != nil {
		return nil, err
	}

	store, err := library.OpenSQLiteStore(cfg.DBPath, library.SessionKey(cfg.SessionKey))
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	a := &app{
		cfg:     cfg,
		log:     logger,
		store:   store,
		trigger: library.NewTrigger(),
		out:     out,
		in:      bufio.NewScanner(in),
	}
	a.session = library.NewSession(store, logger)
	client := library.NewClient(cfg.APIURL, a.session,
		library.WithTimeout(cfg.HTTPTimeout),
		library.WithLogger(logger),
	)
	a.api = library.NewAPI(client)
	a.auth = library.NewAuth(a.session, a.api, logger)
	a.list = library.NewListView(a.api, order, logger)
	a.desk = library.NewDesk(a.api, a.changed, logger)

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		opt.DialTimeout = 2 * time.Second
		opt.ReadTimeout = 500 * time.Millisecond
		opt.WriteTimeout = 500 * time.Millisecond
		a.rdb = redis.NewClient(opt)
		a.cache = library.NewRedisCache(a.rdb, cfg.RecommendTTL, logger)
	}

	if cfg.AMQPURL != "" {
		bus, err := notify.Dial(cfg.AMQPURL, cfg.Exchange, logger)
		if err != nil {
			// Change notifications are optional; local refreshes still work.
			logger.Printf("[notify] disabled: %v", err)
		} else {
			a.bus = bus
		}
	}

	a.auth.Startup(ctx)
	return a, nil
}

func (a *app) Close() {
	if a.bus != nil {
		a.bus.Close()
	}
	if a.rdb != nil {
		a.rdb.Close()
	}
	a.store.Close()
}

// changed runs after every successful mutation: the local list re-fetches on
// its next Sync and other clients are told through the broker.
func (a *app) changed(c library.Change) {
	a.trigger.Bump()
	if a.bus == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev := notify.Event{Kind: c.Kind, BookID: c.BookID, By: a.session.DisplayName()}
	if err := a.bus.Publish(ctx, ev); err != nil {
		a.log.Printf("[notify] publish %s: %v", c.Kind, err)
	}
}

// prompt prints label and reads one trimmed line. ok is false on EOF.
func (a *app) prompt(label string) (string, bool) {
	fmt.Fprint(a.out, label)
	if !a.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.in.Text()), true
}

// confirmer asks on the terminal. Without a terminal only assumeYes confirms.
func (a *app) confirmer(assumeYes bool) library.Confirmer {
	return library.ConfirmFunc(func(question string) bool {
		if assumeYes {
			return true
		}
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(a.out, "Not a terminal; pass --yes to confirm.")
			return false
		}
		answer, ok := a.prompt(question + " [y/N]: ")
		if !ok {
			return false
		}
		answer = strings.ToLower(answer)
		return answer == "y" || answer == "yes"
	})
}
