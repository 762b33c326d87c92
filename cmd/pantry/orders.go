package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pantry-shop/internal/order"
)

func checkoutCmd(a **app) *cobra.Command {
	var address, note string

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order from the current cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			(*a).ensureFreshToken(cmd.Context())

			placed, err := (*a).orders.Checkout(cmd.Context(), order.CheckoutParams{
				ShippingAddress: address,
				Note:            note,
			})
			if err != nil {
				return err
			}

			success("Order %s placed, total %.2f", placed.ID, placed.TotalAmount)
			// The backend consumed the cart; refresh the local copy.
			if _, err := (*a).cart.Load(cmd.Context()); err != nil {
				warn("could not refresh cart: %v", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "shipping address (required)")
	cmd.Flags().StringVar(&note, "note", "", "delivery note")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

func ordersCmd(a **app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List and inspect your orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			(*a).ensureFreshToken(cmd.Context())
			orders, err := (*a).orders.List(cmd.Context())
			if err != nil {
				return err
			}
			printOrders(orders)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <order-id>",
		Short: "Show one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			(*a).ensureFreshToken(cmd.Context())
			placed, err := (*a).orders.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			bold.Printf("Order %s\n", placed.ID)
			fmt.Printf("Placed:   %s\n", placed.CreatedAt.Format("2006-01-02 15:04"))
			fmt.Printf("Status:   %s\n", placed.Status)
			fmt.Printf("Ship to:  %s\n", placed.ShippingAddress)
			if placed.Note != "" {
				fmt.Printf("Note:     %s\n", placed.Note)
			}
			fmt.Println()
			for _, item := range placed.Items {
				fmt.Printf("  %dx %s %s  %.2f\n", item.Quantity, item.ProductName, item.VariantName, item.LineTotal)
			}
			fmt.Println()
			bold.Printf("Total:    %.2f\n", placed.TotalAmount)
			return nil
		},
	})

	return cmd
}
