package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-portal/library"
)

const dateLayout = "2006-01-02"

// readPassword reads a password with terminal echo disabled.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(bytePassword)), nil
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Authenticate and store the session credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword("Password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			res, err := a.client.Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			// Saving fires the login signal, which repopulates the store.
			if err := a.session.SaveCredentials(&res.User, res.Token); err != nil {
				return err
			}
			fmt.Printf("Logged in as %s (%s)\n", res.User.Name, res.User.Role)
			return nil
		},
	}
}

func newSignupCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "signup <email>",
		Short: "Register a new account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword("Choose a password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			res, err := a.client.Signup(cmd.Context(), library.SignupRequest{
				Email:    args[0],
				Password: password,
				Name:     name,
			})
			if err != nil {
				return err
			}
			if err := a.session.SaveCredentials(&res.User, res.Token); err != nil {
				return err
			}
			if res.Message != "" {
				fmt.Println(res.Message)
			}
			fmt.Printf("Signed up as %s\n", res.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Clear(); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u := a.session.User()
			if u == nil {
				fmt.Println("Not logged in.")
				return nil
			}
			fmt.Printf("%s <%s> role=%s\n", u.Name, u.Email, u.Role)
			if exp := a.session.TokenExpiry(); !exp.IsZero() && exp.Before(time.Now()) {
				fmt.Println("Warning: session token has expired; please log in again.")
			}
			return nil
		},
	}
}

func newBooksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.store.RefetchBooks(cmd.Context())
			books, _, err := a.store.Books()
			if err != nil {
				return err
			}
			if len(books) == 0 {
				fmt.Println("No books in catalog.")
				return nil
			}
			fmt.Printf("%-10s %-35s %-25s %-20s %s\n", "ID", "Title", "Author", "Category", "Available")
			fmt.Println(strings.Repeat("-", 105))
			for _, b := range books {
				fmt.Printf("%-10s %-35s %-25s %-20s %d/%d\n",
					truncateString(b.ID, 10),
					truncateString(b.Title, 35),
					truncateString(b.Author, 25),
					truncateString(b.Category, 20),
					b.AvailableCopies, b.TotalCopies)
			}
			return nil
		},
	}
	cmd.AddCommand(newBookAddCmd(a), newBookUpdateCmd(a))
	return cmd
}

func bookFormFlags(cmd *cobra.Command, form *library.BookForm, coverPath *string) {
	cmd.Flags().StringVar(&form.Title, "title", "", "book title")
	cmd.Flags().StringVar(&form.Author, "author", "", "author")
	cmd.Flags().StringVar(&form.Category, "category", "", "category")
	cmd.Flags().StringVar(&form.ISBN, "isbn", "", "ISBN")
	cmd.Flags().IntVar(&form.TotalCopies, "copies", 1, "total copies")
	cmd.Flags().StringVar(&form.Description, "description", "", "description")
	cmd.Flags().IntVar(&form.PublishedYear, "year", 0, "published year")
	cmd.Flags().StringVar(coverPath, "cover", "", "path to cover image")
}

func loadCover(form *library.BookForm, coverPath string) (func(), error) {
	if coverPath == "" {
		return func() {}, nil
	}
	f, err := os.Open(coverPath)
	if err != nil {
		return nil, fmt.Errorf("open cover image: %w", err)
	}
	form.Cover = f
	form.CoverName = coverPath
	return func() { f.Close() }, nil
}

func newBookAddCmd(a *app) *cobra.Command {
	var form library.BookForm
	var coverPath string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a catalog entry (librarian)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			closeCover, err := loadCover(&form, coverPath)
			if err != nil {
				return err
			}
			defer closeCover()
			book, err := a.store.CreateBook(cmd.Context(), form)
			if err != nil {
				return err
			}
			fmt.Printf("Added '%s' (ID %s)\n", book.Title, book.ID)
			return nil
		},
	}
	bookFormFlags(cmd, &form, &coverPath)
	return cmd
}

func newBookUpdateCmd(a *app) *cobra.Command {
	var form library.BookForm
	var coverPath string
	cmd := &cobra.Command{
		Use:   "update <bookID>",
		Short: "Update a catalog entry (librarian)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			closeCover, err := loadCover(&form, coverPath)
			if err != nil {
				return err
			}
			defer closeCover()
			book, err := a.store.UpdateBook(cmd.Context(), args[0], form)
			if err != nil {
				return err
			}
			fmt.Printf("Updated '%s'\n", book.Title)
			return nil
		},
	}
	bookFormFlags(cmd, &form, &coverPath)
	return cmd
}

func newUsersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List the user roster (librarian)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.store.RefetchUsers(cmd.Context())
			users, _, err := a.store.Users()
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Println("No users registered.")
				return nil
			}
			fmt.Printf("%-10s %-25s %-30s %-10s %s\n", "ID", "Name", "Email", "Role", "Active")
			fmt.Println(strings.Repeat("-", 85))
			for _, u := range users {
				fmt.Printf("%-10s %-25s %-30s %-10s %t\n",
					truncateString(u.ID, 10),
					truncateString(u.Name, 25),
					truncateString(u.Email, 30),
					u.Role, u.IsActive)
			}
			return nil
		},
	}
}

func newReserveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reserve <bookID>",
		Short: "Reserve one copy of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The reserve precondition checks against the current catalog.
			a.store.RefetchBooks(cmd.Context())
			record, err := a.store.Reserve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Reserved. Pick up before %s (record %s).\n",
				record.ReservationExpiresAt.Local().Format("Mon Jan 2 15:04"), record.ID)
			return nil
		},
	}
}

func newPickupCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "pickup <recordID>",
		Short: "Confirm pickup of a reserved book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if days == 0 {
				days = a.cfg.LoanDurationDays
			}
			record, err := a.store.ConfirmPickup(cmd.Context(), args[0], days)
			if err != nil {
				return err
			}
			if record.DueDate != nil {
				fmt.Printf("Picked up. Due %s.\n", record.DueDate.Local().Format(dateLayout))
			} else {
				fmt.Println("Picked up.")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "loan duration in days")
	return cmd
}

func newReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return <recordID>",
		Short: "Confirm return of a borrowed book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.store.RefetchBooks(cmd.Context())
			record, err := a.store.ConfirmReturn(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Returned (record %s). Thanks!\n", record.ID)
			return nil
		},
	}
}

func newBorrowsCmd(a *app) *cobra.Command {
	var mine bool
	cmd := &cobra.Command{
		Use:   "borrows",
		Short: "List borrow records with their effective status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.store.RefetchBooks(cmd.Context())
			a.store.RefetchBorrowRecords(cmd.Context())
			records, _, err := a.store.BorrowRecords()
			if err != nil {
				return err
			}
			if mine {
				if u := a.session.User(); u != nil {
					records = a.store.UserBorrowRecords(u.ID)
				}
			}
			printRecords(a, records)
			return nil
		},
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "only my records")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var fromStr, toStr string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query historical borrow records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var from, to *time.Time
			if fromStr != "" {
				t, err := time.Parse(dateLayout, fromStr)
				if err != nil {
					return fmt.Errorf("invalid --from date: %w", err)
				}
				from = &t
			}
			if toStr != "" {
				t, err := time.Parse(dateLayout, toStr)
				if err != nil {
					return fmt.Errorf("invalid --to date: %w", err)
				}
				to = &t
			}
			records, err := a.store.BorrowHistory(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			a.store.RefetchBooks(cmd.Context())
			printRecords(a, records)
			return nil
		},
	}
	cmd.Flags().StringVar(&fromStr, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toStr, "to", "", "end date (YYYY-MM-DD)")
	return cmd
}

func printRecords(a *app, records []library.BorrowRecord) {
	if len(records) == 0 {
		fmt.Println("No borrow records.")
		return
	}
	now := time.Now()
	fmt.Printf("%-10s %-35s %-10s %-12s %s\n", "ID", "Book", "Status", "Due", "Reserved")
	fmt.Println(strings.Repeat("-", 85))
	for i := range records {
		r := &records[i]
		title := r.BookID
		if book, ok := a.store.BookByID(r.BookID); ok {
			title = book.Title
		}
		due := "-"
		if r.DueDate != nil {
			due = r.DueDate.Local().Format(dateLayout)
		}
		fmt.Printf("%-10s %-35s %-10s %-12s %s\n",
			truncateString(r.ID, 10),
			truncateString(title, 35),
			library.ResolveStatus(r, now),
			due,
			r.ReservedAt.Local().Format(dateLayout))
	}
}

func newNotificationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List notifications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u := a.session.User()
			if u == nil {
				fmt.Println("Not logged in.")
				return nil
			}
			a.store.RefetchNotifications(cmd.Context(), u.ID)
			notifications, _, err := a.store.Notifications()
			if err != nil {
				return err
			}
			if len(notifications) == 0 {
				fmt.Println("No notifications.")
				return nil
			}
			for _, n := range notifications {
				marker := " "
				if !n.Read {
					marker = "*"
				}
				fmt.Printf("%s [%-7s] %s - %s (%s, id %s)\n",
					marker, n.Type, n.Title, n.Message,
					n.CreatedAt.Local().Format(dateLayout), n.ID)
			}
			return nil
		},
	}

	read := &cobra.Command{
		Use:   "read <notificationID>",
		Short: "Mark one notification read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.MarkNotificationRead(cmd.Context(), args[0])
		},
	}
	readAll := &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := a.store.MarkAllNotificationsRead(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Marked %d notifications read.\n", count)
			return nil
		},
	}
	cmd.AddCommand(read, readAll)
	return cmd
}

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show library statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.store.Bootstrap(cmd.Context())
			stats := a.store.Stats(time.Now())
			fmt.Printf("Books:          %d\n", stats.TotalBooks)
			fmt.Printf("Users:          %d\n", stats.TotalUsers)
			fmt.Printf("Active borrows: %d\n", stats.ActiveBorrows)
			fmt.Printf("Overdue:        %d\n", stats.OverdueBooks)
			if len(stats.MostBorrowedBooks) > 0 {
				fmt.Println("Most borrowed:")
				for _, mb := range stats.MostBorrowedBooks {
					title := mb.BookID
					if book, ok := a.store.BookByID(mb.BookID); ok {
						title = book.Title
					}
					fmt.Printf("  %-40s %d\n", truncateString(title, 40), mb.Count)
				}
			}
			return nil
		},
	}
}

func newSwitchRoleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "switch-role <librarian|client>",
		Short: "Switch the session's active role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := library.UserRole(args[0])
			if role != library.RoleLibrarian && role != library.RoleClient {
				return fmt.Errorf("unknown role %q", args[0])
			}
			if err := a.session.SwitchRole(role); err != nil {
				return err
			}
			fmt.Printf("Active role is now %s.\n", role)
			return nil
		},
	}
}
