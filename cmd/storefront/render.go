package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fjod/go_cart/storefront/internal/app"
	"github.com/fjod/go_cart/storefront/internal/notify"
)

func printNotifications(out io.Writer, ns []notify.Notification) {
	for _, n := range ns {
		fmt.Fprintf(out, "[%s] %s\n", n.Level, n.Message)
	}
}

// printView writes the plain-text rendering of v.
func printView(out io.Writer, v app.View) {
	fmt.Fprintf(out, "%s  (cart: %d)\n", v.Path, v.CartCount)

	switch {
	case v.Login != nil:
		fmt.Fprintln(out, v.Login.Title)
		if v.Login.Error != "" {
			fmt.Fprintln(out, v.Login.Error)
		}
		fmt.Fprintf(out, "%s %s\n", v.Login.TogglePrompt, v.Login.ToggleLabel)

	case v.Products != nil:
		fmt.Fprintln(out, v.Products.Title)
		if v.Products.Message != "" {
			fmt.Fprintln(out, v.Products.Message)
			return
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tPRICE")
		for _, p := range v.Products.Products {
			fmt.Fprintf(tw, "%d\t%s\t%.2f\n", p.ID, p.Name, p.Price)
		}
		_ = tw.Flush()

	case v.Cart != nil:
		if v.Cart.Message != "" {
			fmt.Fprintln(out, v.Cart.Message)
			return
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tPRICE\tQTY\tTOTAL")
		for _, l := range v.Cart.Lines {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", l.ProductID, l.Name, l.Price, l.Quantity, l.LineTotal)
		}
		_ = tw.Flush()
		fmt.Fprintf(out, "Total: %s\n", v.Cart.Total)

	case v.Checkout != nil:
		for _, l := range v.Checkout.Summary.Lines {
			fmt.Fprintf(out, "%s  %s\n", l, l.LineTotal)
		}
		fmt.Fprintf(out, "Total: %s\n", v.Checkout.Summary.Total)
		if len(v.Checkout.Missing) > 0 {
			fmt.Fprintf(out, "missing: %s\n", strings.Join(v.Checkout.Missing, ", "))
		}
		if v.Checkout.Error != "" {
			fmt.Fprintln(out, v.Checkout.Error)
		}
	}
}
