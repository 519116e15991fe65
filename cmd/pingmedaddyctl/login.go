package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func newLoginCmd(c *client) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange admin credentials for a bearer token and cache it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				fmt.Print("username: ")
				reader := bufio.NewReader(os.Stdin)
				line, err := reader.ReadString('\n')
				if err != nil {
					return err
				}
				username = strings.TrimSpace(line)
			}

			fmt.Print("password: ")
			password, err := readPassword()
			if err != nil {
				return err
			}
			fmt.Println()

			var resp loginResponse
			if err := c.do("POST", "/auth/login", loginRequest{Username: username, Password: password}, &resp); err != nil {
				return err
			}
			if err := c.saveToken(resp.AccessToken); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Println("logged in")
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "admin username (prompted if omitted)")
	return cmd
}

// readPassword reads a password without echoing it to the terminal,
// falling back to a plain line read when stdin isn't a TTY (e.g. piped
// input in a script).
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
	raw, err := term.ReadPassword(fd)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
