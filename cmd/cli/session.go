package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// cookiePath is where login persists the session cookie. The transport
// picks it up through the netease.cookie_file config default.
func cookiePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		fatal(err)
	}
	return filepath.Join(home, ".ncm-fetch", "cookie")
}

var loginCmd = &cobra.Command{
	Use:   "login [cookie]",
	Short: "Save a session cookie (the MUSIC_U value from a browser session)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cookie := strings.TrimSpace(args[0])
		if !strings.Contains(cookie, "=") {
			cookie = "MUSIC_U=" + cookie
		}
		if !strings.Contains(cookie, "MUSIC_U=") {
			fatal(fmt.Errorf("cookie must contain MUSIC_U"))
		}

		path := cookiePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			fatal(err)
		}
		if err := os.WriteFile(path, []byte(cookie+"\n"), 0o600); err != nil {
			fatal(err)
		}

		// Verify before reporting success.
		s, err := buildStack(false)
		if err != nil {
			fatal(err)
		}
		defer s.Close()

		nickname, userID, err := s.client.UserInfo(cmd.Context())
		if err != nil {
			os.Remove(path)
			fatal(fmt.Errorf("cookie rejected by upstream: %w", err))
		}
		fmt.Printf("Logged in as %s (%d)\n", nickname, userID)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the saved session cookie",
	Run: func(cmd *cobra.Command, args []string) {
		path := cookiePath()
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				fmt.Println("Not logged in")
				return
			}
			fatal(err)
		}
		fmt.Println("Logged out")
	},
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the account behind the saved session",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := buildStack(false)
		if err != nil {
			fatal(err)
		}
		defer s.Close()

		if !s.client.HasSession() {
			fmt.Println("Not logged in")
			return
		}
		nickname, userID, err := s.client.UserInfo(cmd.Context())
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Nickname: %s\nUser ID:  %d\n", nickname, userID)
	},
}
