package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pantry-shop/internal/eventbus"
	"pantry-shop/internal/push"
)

// watchCmd keeps the process alive listening to the backend update feed and
// prints the cart every time a pushed change lands.
func watchCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow live cart updates until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			(*a).ensureFreshToken(ctx)

			unsub := (*a).bus.On(eventbus.CartSyncRequested, func(any) {
				go func() {
					if current, err := (*a).cart.Load(ctx); err == nil {
						fmt.Println()
						printCart(current, (*a).cart.Totals())
					}
				}()
			})
			defer unsub()

			// Show the starting point before waiting for pushes.
			if current, err := (*a).cart.Load(ctx); err == nil {
				printCart(current, (*a).cart.Totals())
			}

			listener := push.NewListener((*a).cfg.BackendURL, (*a).manager, (*a).bus)
			fmt.Println("Watching for cart updates, press Ctrl-C to stop...")
			listener.Run(ctx)

			if ctx.Err() == context.Canceled {
				return nil
			}
			return ctx.Err()
		},
	}
}
