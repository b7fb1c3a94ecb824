package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"library-lending/config"
	"library-lending/library"
)

// import_books registers every "title<TAB>author" line of a catalog file
// with the lending service. Lines starting with # are skipped.
func main() {
	path := flag.String("file", "books.tsv", "catalog file, one title<TAB>author per line")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	store, err := library.OpenSQLiteStore(cfg.DBPath, library.SessionKey(cfg.SessionKey))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening session store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	session := library.NewSession(store, nil)
	client := library.NewClient(cfg.APIURL, session, library.WithTimeout(cfg.HTTPTimeout))
	api := library.NewAPI(client)
	library.NewAuth(session, api, nil).Startup(ctx)

	f, err := os.Open(filepath.Clean(*path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading catalog file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	fmt.Printf("Importing books from %s...\n", *path)
	form := library.NewAddBookForm(api, nil, nil)

	successCount := 0
	errorCount := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		title, author, _ := strings.Cut(line, "\t")
		form.Title, form.Author = title, author

		fmt.Printf("Importing: %s by %s... ", title, author)
		ok, err := form.Submit(ctx)
		switch {
		case err != nil:
			fmt.Printf("ERROR - %s\n", library.UserMessage(err, err.Error()))
			errorCount++
		case !ok:
			fmt.Println("SKIPPED - empty title")
		default:
			fmt.Println("SUCCESS")
			successCount++
		}
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading catalog file: %v\n", err)
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Successfully imported: %d books\n", successCount)
	fmt.Printf("Errors: %d\n", errorCount)

	if successCount > 0 {
		books, err := api.ListBooks(ctx, library.BookFilter{})
		if err != nil {
			fmt.Printf("Error retrieving books: %v\n", err)
			return
		}
		fmt.Println("\nCatalog:")
		fmt.Printf("%-5s %-50s %-30s\n", "ID", "Title", "Author")
		fmt.Println(strings.Repeat("-", 87))
		for _, book := range books {
			fmt.Printf("%-5d %-50s %-30s\n", book.ID, truncateString(book.Title, 50), truncateString(book.Author, 30))
		}
	}
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
