package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"pantry-shop/internal/cart"
	"pantry-shop/internal/domain"
)

func cartCmd(a **app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			(*a).ensureFreshToken(cmd.Context())
			current, err := (*a).cart.Load(cmd.Context())
			if err != nil {
				return err
			}
			printCart(current, (*a).cart.Totals())
			return nil
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <product-id> <variant-id> <quantity>",
		Short: "Add an item",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("%w: quantity must be a number", domain.ErrInvalidInput)
			}

			(*a).ensureFreshToken(cmd.Context())
			updated, err := (*a).cart.AddItem(cmd.Context(), cart.AddItemParams{
				ProductID: args[0],
				VariantID: args[1],
				Quantity:  quantity,
			})
			if err != nil {
				return err
			}
			success("Added to cart (%d items)", updated.ItemCount)
			return nil
		},
	}

	updateCmd := &cobra.Command{
		Use:   "update <item-id> <quantity>",
		Short: "Change a line's quantity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("%w: quantity must be a number", domain.ErrInvalidInput)
			}

			(*a).ensureFreshToken(cmd.Context())
			updated, err := (*a).cart.UpdateItem(cmd.Context(), args[0], quantity)
			if err != nil {
				return err
			}
			success("Cart updated (%d items)", updated.ItemCount)
			return nil
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <item-id>",
		Short: "Remove a line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			(*a).ensureFreshToken(cmd.Context())
			updated, err := (*a).cart.RemoveItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			success("Item removed (%d items left)", updated.ItemCount)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			(*a).ensureFreshToken(cmd.Context())
			if _, err := (*a).cart.Clear(cmd.Context()); err != nil {
				return err
			}
			success("Cart emptied")
			return nil
		},
	}

	var strategy string
	var yes bool
	mergeCmd := &cobra.Command{
		Use:   "merge",
		Short: "Combine the pre-login guest cart with your saved cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				warn("Merging is irreversible; re-run with --yes to confirm.")
				return nil
			}

			(*a).ensureFreshToken(cmd.Context())
			_, err := (*a).resolver.Resolve(cmd.Context(), domain.MergeStrategy(strategy), true)
			return err
		},
	}
	mergeCmd.Flags().StringVar(&strategy, "strategy", string(domain.StrategyMerge), "merge, replace or keep_existing")
	mergeCmd.Flags().BoolVar(&yes, "yes", false, "confirm the merge")

	cmd.AddCommand(addCmd, updateCmd, removeCmd, clearCmd, mergeCmd)
	return cmd
}
