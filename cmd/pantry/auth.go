package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func loginCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Log in and adopt your saved cart",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := (*a).auth.Login(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			success("Logged in as %s", user.Email)

			if (*a).resolver.CheckConflict() {
				warn("You had a cart before logging in. Combine it with your saved cart:")
				for _, opt := range (*a).resolver.Options() {
					marker := "  "
					if opt.Recommended {
						marker = "* "
					}
					fmt.Printf("%spantry cart merge --strategy %s\t%s\n", marker, opt.Strategy, opt.Description)
				}
			}
			return nil
		},
	}
}

func registerCmd(a **app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "register <email> <password>",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := (*a).auth.Register(cmd.Context(), args[0], args[1], name)
			if err != nil {
				return err
			}
			success("Account created for %s", user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func logoutCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and return to a guest session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*a).auth.Logout(cmd.Context()); err != nil {
				return err
			}
			success("Logged out")
			return nil
		},
	}
}

func whoamiCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			(*a).ensureFreshToken(cmd.Context())

			if !(*a).manager.IsAuthenticated() {
				fmt.Printf("Guest session %s\n", (*a).manager.SessionID())
				return nil
			}

			user, err := (*a).auth.Profile(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s)\n", user.Name, user.Email)
			fmt.Printf("Session %s\n", (*a).manager.SessionID())
			return nil
		},
	}
}

func sessionCmd(a **app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or reset the local session",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Wipe all local session state and start over as a fresh guest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*a).manager.Clear(); err != nil {
				return err
			}
			success("Session cleared, new guest id %s", (*a).manager.SessionID())
			return nil
		},
	})

	return cmd
}
