package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-lending/library"
	"library-lending/notify"
)

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	var a *app

	root := &cobra.Command{
		Use:           "library",
		Short:         "Book lending tracker",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(cmd.Context(), in, out)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.Close()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runShell(cmd.Context())
		},
	}
	root.SetOut(out)

	get := func() *app { return a }
	root.AddCommand(
		&cobra.Command{
			Use:   "shell",
			Short: "Interactive session (default)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return get().runShell(cmd.Context())
			},
		},
		newBooksCmd(get),
		newFeedbackCmd(get),
		newRecommendCmd(get),
		newLoginCmd(get),
		newRegisterCmd(get),
		newRenameCmd(get),
		&cobra.Command{
			Use:   "logout",
			Short: "Forget the stored session",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				get().auth.Logout(cmd.Context())
				fmt.Fprintln(get().out, "Signed out.")
			},
		},
		&cobra.Command{
			Use:   "whoami",
			Short: "Show the signed-in user",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				printWhoami(get())
			},
		},
		newWatchCmd(get),
	)
	return root
}

// ------------------ books ------------------

func newBooksCmd(get func() *app) *cobra.Command {
	books := &cobra.Command{Use: "books", Short: "List and manage books"}

	var title, borrower, sortDir string
	list := &cobra.Command{
		Use:   "list",
		Short: "Search the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			dir, err := library.ParseDirection(sortDir)
			if err != nil {
				return err
			}
			if err := a.list.SetSort(library.SortSpec{Field: library.SortTitle, Direction: dir}); err != nil {
				return err
			}
			a.list.SetFilters(title, borrower)
			if err := a.list.Search(cmd.Context()); err != nil {
				return err
			}
			renderBooks(a.out, a.list.Items(), a.list.Sort())
			return nil
		},
	}
	list.Flags().StringVar(&title, "title", "", "filter by title")
	list.Flags().StringVar(&borrower, "borrower", "", "filter by borrower name")
	list.Flags().StringVar(&sortDir, "sort", "none", "sort by title: none, asc or desc")

	var author string
	add := &cobra.Command{
		Use:   "add TITLE",
		Short: "Register a book",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			form := library.NewAddBookForm(a.api, a.changed, a.log)
			form.Title, form.Author = strings.Join(args, " "), author
			ok, err := form.Submit(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("title is required")
			}
			fmt.Fprintln(a.out, "Book added.")
			return nil
		},
	}
	add.Flags().StringVar(&author, "author", "", "author (optional)")

	var name, date string
	borrow := &cobra.Command{
		Use:   "borrow ID",
		Short: "Lend a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			form := library.NewBorrowForm(a.api, a.session, id, a.changed, a.log)
			if name != "" {
				if err := form.SetBorrowerName(name); err != nil {
					return fmt.Errorf("%w (%s)", err, form.BorrowerName())
				}
			}
			form.ReturnDate = date
			ok, err := form.Submit(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("borrower name and --date are required")
			}
			fmt.Fprintf(a.out, "Book %d lent until %s.\n", id, date)
			return nil
		},
	}
	borrow.Flags().StringVar(&name, "name", "", "borrower name (rejected when signed in)")
	borrow.Flags().StringVar(&date, "date", "", "return date, YYYY-MM-DD")

	ret := &cobra.Command{
		Use:   "return ID",
		Short: "Mark a book as returned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.desk.Return(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Book %d returned.\n", id)
			return nil
		},
	}

	var yes bool
	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			deleted, err := a.desk.Delete(cmd.Context(), id, a.confirmer(yes))
			if err != nil {
				return err
			}
			if deleted {
				fmt.Fprintf(a.out, "Book %d deleted.\n", id)
			} else {
				fmt.Fprintln(a.out, "Cancelled.")
			}
			return nil
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation")

	books.AddCommand(list, add, borrow, ret, del)
	return books
}

// ------------------ feedback ------------------

func newFeedbackCmd(get func() *app) *cobra.Command {
	fb := &cobra.Command{Use: "feedback", Short: "Read and send feedback"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List feedback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			items, err := a.api.ListFeedback(cmd.Context())
			if err != nil {
				return err
			}
			renderFeedback(a.out, items)
			return nil
		},
	}

	cats := &cobra.Command{
		Use:   "categories",
		Short: "List feedback categories",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			a := get()
			form := library.NewFeedbackForm(a.api, a.log)
			for _, c := range form.Categories(cmd.Context()) {
				fmt.Fprintf(a.out, "%-12s %s\n", c.Value, c.Label)
			}
		},
	}

	var title, description, category, author string
	submit := &cobra.Command{
		Use:   "submit",
		Short: "Send feedback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			form := library.NewFeedbackForm(a.api, a.log)
			form.Title, form.Description = title, description
			if category != "" {
				form.Category = category
			}
			form.AuthorName = author
			if form.AuthorName == "" {
				form.AuthorName = a.session.DisplayName()
			}
			res, err := form.Submit(cmd.Context())
			if err != nil {
				return errors.New(form.Message)
			}
			if res == nil {
				return errors.New("title, description, category and author are required")
			}
			printFeedbackResult(a.out, res)
			return nil
		},
	}
	submit.Flags().StringVar(&title, "title", "", "title")
	submit.Flags().StringVar(&description, "description", "", "description")
	submit.Flags().StringVar(&category, "category", library.CategoryImprovement, "bug, feature or improvement")
	submit.Flags().StringVar(&author, "author", "", "your name (defaults to the signed-in user)")

	fb.AddCommand(list, cats, submit)
	return fb
}

// ------------------ recommendations ------------------

func newRecommendCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend QUERY...",
		Short: "Ask for book recommendations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			form := library.NewRecommendForm(a.api, a.cache, a.log)
			form.Query = strings.Join(args, " ")
			if _, err := form.Submit(cmd.Context()); err != nil {
				return errors.New(form.Message)
			}
			renderRecommendations(a.out, form.Results)
			return nil
		},
	}
}

// ------------------ auth ------------------

func newLoginCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login USERNAME",
		Short: "Sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			form := library.NewLoginForm(a.auth)
			form.Username = args[0]
			if _, err := form.Submit(cmd.Context()); err != nil {
				return errors.New(form.Message)
			}
			printWhoami(a)
			return nil
		},
	}
}

func newRegisterCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "register USERNAME DISPLAY_NAME...",
		Short: "Create an account and sign in",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			form := library.NewRegisterForm(a.auth)
			form.Username, form.DisplayName = args[0], strings.Join(args[1:], " ")
			if _, err := form.Submit(cmd.Context()); err != nil {
				return errors.New(form.Message)
			}
			printWhoami(a)
			return nil
		},
	}
}

func newRenameCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename DISPLAY_NAME...",
		Short: "Change your display name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if _, err := a.auth.UpdateDisplayName(cmd.Context(), strings.Join(args, " ")); err != nil {
				return err
			}
			printWhoami(a)
			return nil
		},
	}
}

// ------------------ watch ------------------

func newWatchCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-print the catalog whenever another client changes it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if a.bus == nil {
				return errors.New("watch needs AMQP_URL or RABBITMQ_* to be configured")
			}
			return a.watch(cmd.Context(), a.bus)
		},
	}
}

// subscriber is the part of the broker connection watch needs.
type subscriber interface {
	Subscribe(ctx context.Context, handle func(notify.Event)) error
}

var errStreamClosed = errors.New("notification stream closed")

// watch re-renders the list after every change notification. It returns nil
// when ctx ends and the subscription's error when the subscription stops first.
func (a *app) watch(ctx context.Context, sub subscriber) error {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		err := sub.Subscribe(wctx, func(ev notify.Event) {
			a.log.Printf("[notify] %s book %d by %s", ev.Kind, ev.BookID, ev.By)
			a.trigger.Bump()
		})
		if err == nil {
			err = errStreamClosed
		}
		errc <- err
		cancel()
	}()

	seen := a.trigger.Value()
	for {
		if err := a.list.Sync(wctx, seen); err == nil {
			renderBooks(a.out, a.list.Items(), a.list.Sort())
		}
		next, err := a.trigger.Wait(wctx, seen)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("watch: %w", <-errc)
		}
		seen = next
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid book ID: %s", s)
	}
	return id, nil
}
