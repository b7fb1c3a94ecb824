package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"library-lending/config"
	"library-lending/devserver"
)

// Sample catalog so a fresh server has something to list and sort.
var seedBooks = [][2]string{
	{"1984", "George Orwell"},
	{"Animal Farm", "George Orwell"},
	{"The Art of War", "Sun Tzu"},
	{"The Fellowship of the Ring", "J.R.R. Tolkien"},
	{"Romeo and Juliet", "William Shakespeare"},
	{"The Three Musketeers", "Alexandre Dumas"},
	{"吾輩は猫である", "夏目漱石"},
	{"こころ", "夏目漱石"},
	{"羅生門", "芥川龍之介"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	for _, w := range cfg.Warnings() {
		log.Printf("[config] %s", w)
	}

	srv := devserver.New(devserver.Options{
		JWTSecret:    []byte(cfg.DevJWTSecret),
		TokenTTL:     cfg.DevTokenTTL,
		IssueBaseURL: os.Getenv("DEVSERVER_ISSUE_BASE_URL"),
	})
	srv.Seed(seedBooks...)

	log.Printf("[devserver] listening on %s (API under /api)", cfg.DevAddr)
	if err := http.ListenAndServe(cfg.DevAddr, srv.Handler()); err != nil {
		log.Fatalln("Error starting server:", err)
	}
}
