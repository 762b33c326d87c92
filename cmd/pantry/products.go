package main

import (
	"github.com/spf13/cobra"
)

func productsCmd(a **app) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse the catalog",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := (*a).catalog.List(cmd.Context(), category)
			if err != nil {
				return err
			}
			printProducts(products)
			return nil
		},
	}
	listCmd.Flags().StringVar(&category, "category", "", "filter by category")

	showCmd := &cobra.Command{
		Use:   "show <product-id>",
		Short: "Show a product and its variants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			product, err := (*a).catalog.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printProduct(product)
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}
