package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"library-portal/library"
)

// app bundles the long-lived pieces every command shares: the session
// (durable credential), the API client and the data store. Constructed once
// at startup, torn down at exit.
type app struct {
	cfg     library.Config
	session *library.Session
	client  *library.Client
	store   *library.Store
}

func main() {
	cfg, err := library.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	session, err := library.NewSession(cfg.SessionDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening session store: %v\n", err)
		os.Exit(1)
	}
	defer session.Close()

	client := library.NewClient(cfg.APIBaseURL, session)
	a := &app{
		cfg:     cfg,
		session: session,
		client:  client,
		store:   library.NewStore(client, session),
	}

	root := &cobra.Command{
		Use:           "library-portal",
		Short:         "Terminal client for the library management service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCmd(a),
		newSignupCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newBooksCmd(a),
		newUsersCmd(a),
		newReserveCmd(a),
		newPickupCmd(a),
		newReturnCmd(a),
		newBorrowsCmd(a),
		newHistoryCmd(a),
		newNotificationsCmd(a),
		newDashboardCmd(a),
		newSwitchRoleCmd(a),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
