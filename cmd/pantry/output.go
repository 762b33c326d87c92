package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"

	"pantry-shop/internal/cart"
	"pantry-shop/internal/domain"
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	bold   = color.New(color.Bold)
)

func success(format string, args ...any) {
	green.Fprintf(os.Stdout, "✔ "+format+"\n", args...)
}

func warn(format string, args ...any) {
	yellow.Fprintf(os.Stdout, "! "+format+"\n", args...)
}

func fail(err error) {
	red.Fprintf(os.Stderr, "✘ %v\n", err)
}

// terminalNotifier adapts the colored output to the cart resolver.
type terminalNotifier struct{}

func (terminalNotifier) Success(message string) { success("%s", message) }
func (terminalNotifier) Error(message string)   { red.Fprintf(os.Stderr, "✘ %s\n", message) }

func printCart(c *domain.Cart, totals cart.Totals) {
	if c.IsEmpty() {
		fmt.Println("Your cart is empty.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ITEM\tPRODUCT\tVARIANT\tQTY\tUNIT\tLINE")
	for _, item := range c.Items {
		unit := fmt.Sprintf("%.2f", item.UnitPrice())
		if item.OnPromotion() {
			unit += fmt.Sprintf(" (was %.2f)", item.RegularPrice)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%.2f\n",
			item.ID, item.ProductName, item.VariantName, item.Quantity, unit, item.LineTotal)
	}
	w.Flush()

	fmt.Println()
	fmt.Printf("Subtotal:  %.2f\n", totals.Subtotal)
	if totals.HasPromotions {
		fmt.Printf("Savings:   %.2f\n", totals.Savings)
	}
	if totals.Shipping > 0 {
		fmt.Printf("Shipping:  %.2f\n", totals.Shipping)
	} else {
		fmt.Println("Shipping:  free")
	}
	bold.Printf("Total:     %.2f\n", totals.Total)
}

func printProducts(products []domain.Product) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tFROM")
	for _, p := range products {
		lowest := 0.0
		for i, v := range p.Variants {
			price := v.Price
			if v.PromoPrice != nil && *v.PromoPrice < price {
				price = *v.PromoPrice
			}
			if i == 0 || price < lowest {
				lowest = price
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\n", p.ID, p.Name, p.Category, lowest)
	}
	w.Flush()
}

func printProduct(p *domain.Product) {
	bold.Println(p.Name)
	if p.Description != "" {
		fmt.Println(p.Description)
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VARIANT\tNAME\tPRICE\tSTOCK")
	for _, v := range p.Variants {
		price := fmt.Sprintf("%.2f", v.Price)
		if v.PromoPrice != nil && *v.PromoPrice < v.Price {
			price = fmt.Sprintf("%.2f (was %.2f)", *v.PromoPrice, v.Price)
		}
		stock := "in stock"
		if !v.InStock {
			stock = "out of stock"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.ID, v.Name, price, stock)
	}
	w.Flush()
}

func printOrders(orders []domain.Order) {
	if len(orders) == 0 {
		fmt.Println("No orders yet.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPLACED\tSTATUS\tITEMS\tTOTAL")
	for _, o := range orders {
		count := 0
		for _, item := range o.Items {
			count += item.Quantity
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\n",
			o.ID, o.CreatedAt.Format("2006-01-02 15:04"), o.Status, count, o.TotalAmount)
	}
	w.Flush()
}
