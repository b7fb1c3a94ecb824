package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"library-lending/library"
)

func (a *app) runShell(ctx context.Context) error {
	fmt.Fprintln(a.out, "Welcome to the Library Lending Tracker!")
	if name := a.session.DisplayName(); name != "" {
		fmt.Fprintf(a.out, "Signed in as %s.\n", name)
	}
	a.printHelp()

	for {
		cmd, ok := a.prompt("\n> ")
		if !ok {
			return nil
		}

		switch cmd {
		case "list":
			a.handleList(ctx)
		case "search":
			a.handleSearch(ctx)
		case "sort":
			a.handleSort()
		case "add":
			a.handleAdd(ctx)
		case "borrow":
			a.handleBorrow(ctx)
		case "return":
			a.handleReturn(ctx)
		case "delete":
			a.handleDelete(ctx)
		case "feedback":
			a.handleFeedback(ctx)
		case "feedbacks":
			a.handleListFeedback(ctx)
		case "recommend":
			a.handleRecommend(ctx)
		case "login":
			a.handleLogin(ctx)
		case "register":
			a.handleRegister(ctx)
		case "logout":
			a.auth.Logout(ctx)
			fmt.Fprintln(a.out, "Signed out.")
		case "whoami":
			printWhoami(a)
		case "help":
			a.printHelp()
		case "exit", "quit":
			fmt.Fprintln(a.out, "Goodbye!")
			return nil
		case "":
		default:
			fmt.Fprintln(a.out, "Unknown command. Type 'help' for the list.")
		}
	}
}

func (a *app) printHelp() {
	fmt.Fprintln(a.out, "Available commands:")
	fmt.Fprintln(a.out, "  Books: list, search, sort, add, borrow, return, delete")
	fmt.Fprintln(a.out, "  Feedback: feedback, feedbacks")
	fmt.Fprintln(a.out, "  Recommendations: recommend")
	fmt.Fprintln(a.out, "  Account: login, register, logout, whoami")
	fmt.Fprintln(a.out, "  System: help, exit")
}

// show re-fetches if anything changed since the last fetch, then prints.
func (a *app) show(ctx context.Context) {
	if err := a.list.Sync(ctx, a.trigger.Value()); err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", library.UserMessage(err, "failed to load books"))
	}
	renderBooks(a.out, a.list.Items(), a.list.Sort())
}

func (a *app) handleList(ctx context.Context) {
	a.show(ctx)
}

func (a *app) handleSearch(ctx context.Context) {
	cur := a.list.Filters()
	title, ok := a.prompt(fmt.Sprintf("Title [%s]: ", cur.Title))
	if !ok {
		return
	}
	borrower, ok := a.prompt(fmt.Sprintf("Borrower [%s]: ", cur.BorrowerName))
	if !ok {
		return
	}
	a.list.SetFilters(title, borrower)
	if err := a.list.Search(ctx); err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", library.UserMessage(err, "failed to load books"))
	}
	renderBooks(a.out, a.list.Items(), a.list.Sort())
}

func (a *app) handleSort() {
	spec, err := a.list.ToggleSort(library.SortTitle)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "Sort: %s\n", spec)
	renderBooks(a.out, a.list.Items(), spec)
}

func (a *app) handleAdd(ctx context.Context) {
	form := library.NewAddBookForm(a.api, a.changed, a.log)
	var ok bool
	if form.Title, ok = a.prompt("Title: "); !ok {
		return
	}
	if form.Author, ok = a.prompt("Author (optional): "); !ok {
		return
	}
	sent, err := form.Submit(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(a.out, "Error adding book: %s\n", library.UserMessage(err, "failed to add book"))
	case !sent:
		fmt.Fprintln(a.out, "Title is required.")
	default:
		fmt.Fprintln(a.out, "Book added.")
	}
}

func (a *app) readID(label string) (int64, bool) {
	s, ok := a.prompt(label)
	if !ok {
		return 0, false
	}
	id, err := parseID(s)
	if err != nil {
		fmt.Fprintln(a.out, err)
		return 0, false
	}
	return id, true
}

func (a *app) handleBorrow(ctx context.Context) {
	id, ok := a.readID("Book ID: ")
	if !ok {
		return
	}
	form := library.NewBorrowForm(a.api, a.session, id, a.changed, a.log)
	if form.Locked() {
		fmt.Fprintf(a.out, "Borrower: %s\n", form.BorrowerName())
	} else {
		name, ok := a.prompt("Borrower name: ")
		if !ok {
			return
		}
		_ = form.SetBorrowerName(name)
	}
	if form.ReturnDate, ok = a.prompt("Return date (YYYY-MM-DD): "); !ok {
		return
	}
	sent, err := form.Submit(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(a.out, "Error: %s\n", library.UserMessage(err, "failed to borrow book"))
	case !sent:
		fmt.Fprintln(a.out, "Borrower name and return date are required.")
	default:
		fmt.Fprintf(a.out, "Book %d lent.\n", id)
	}
}

func (a *app) handleReturn(ctx context.Context) {
	id, ok := a.readID("Book ID: ")
	if !ok {
		return
	}
	if err := a.desk.Return(ctx, id); err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", library.UserMessage(err, "failed to return book"))
		return
	}
	fmt.Fprintf(a.out, "Book %d returned.\n", id)
}

func (a *app) handleDelete(ctx context.Context) {
	id, ok := a.readID("Book ID: ")
	if !ok {
		return
	}
	deleted, err := a.desk.Delete(ctx, id, library.ConfirmFunc(func(q string) bool {
		answer, ok := a.prompt(q + " [y/N]: ")
		answer = strings.ToLower(answer)
		return ok && (answer == "y" || answer == "yes")
	}))
	switch {
	case err != nil:
		fmt.Fprintf(a.out, "Error: %s\n", library.UserMessage(err, "failed to delete book"))
	case !deleted:
		fmt.Fprintln(a.out, "Cancelled.")
	default:
		fmt.Fprintf(a.out, "Book %d deleted.\n", id)
	}
}

func (a *app) handleFeedback(ctx context.Context) {
	form := library.NewFeedbackForm(a.api, a.log)
	var ok bool
	if form.Title, ok = a.prompt("Title: "); !ok {
		return
	}
	if form.Description, ok = a.prompt("Description: "); !ok {
		return
	}
	var values []string
	for _, c := range form.Categories(ctx) {
		values = append(values, c.Value)
	}
	cat, ok := a.prompt(fmt.Sprintf("Category (%s) [%s]: ", strings.Join(values, ", "), form.Category))
	if !ok {
		return
	}
	if cat != "" {
		form.Category = cat
	}
	name := a.session.DisplayName()
	if name == "" {
		if name, ok = a.prompt("Your name: "); !ok {
			return
		}
	}
	form.AuthorName = name

	res, err := form.Submit(ctx)
	switch {
	case errors.Is(err, library.ErrUnknownCategory):
		fmt.Fprintf(a.out, "Unknown category %q.\n", cat)
	case err != nil:
		fmt.Fprintf(a.out, "Error: %s\n", form.Message)
	case res == nil:
		fmt.Fprintln(a.out, "All fields are required.")
	default:
		printFeedbackResult(a.out, res)
	}
}

func (a *app) handleListFeedback(ctx context.Context) {
	items, err := a.api.ListFeedback(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", library.UserMessage(err, "failed to load feedback"))
		return
	}
	renderFeedback(a.out, items)
}

func (a *app) handleRecommend(ctx context.Context) {
	fmt.Fprintln(a.out, "For example:")
	for _, q := range library.ExampleQueries {
		fmt.Fprintf(a.out, "  • %s\n", q)
	}
	form := library.NewRecommendForm(a.api, a.cache, a.log)
	var ok bool
	if form.Query, ok = a.prompt("What are you looking for? "); !ok {
		return
	}
	sent, err := form.Submit(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(a.out, "Error: %s\n", form.Message)
	case !sent:
		fmt.Fprintln(a.out, "Please describe what you want to read.")
	default:
		renderRecommendations(a.out, form.Results)
	}
}

func (a *app) handleLogin(ctx context.Context) {
	form := library.NewLoginForm(a.auth)
	var ok bool
	if form.Username, ok = a.prompt("Username: "); !ok {
		return
	}
	sent, err := form.Submit(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(a.out, "Error: %s\n", form.Message)
	case sent:
		printWhoami(a)
	}
}

func (a *app) handleRegister(ctx context.Context) {
	form := library.NewRegisterForm(a.auth)
	var ok bool
	if form.Username, ok = a.prompt("Username: "); !ok {
		return
	}
	if form.DisplayName, ok = a.prompt("Display name: "); !ok {
		return
	}
	sent, err := form.Submit(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(a.out, "Error: %s\n", form.Message)
	case !sent:
		fmt.Fprintln(a.out, "Username and display name are required.")
	default:
		printWhoami(a)
	}
}
