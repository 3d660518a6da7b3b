package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dealsentry/dealsentry/internal/catalog"
)

func searchCmd() *cobra.Command {
	var (
		maxPrice    int
		minPrice    int
		minDiscount int
		brand       string
		category    string
		userID      int64
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Run one selection and print the result as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer closeDeps(d)

			query := catalog.Query{Text: strings.Join(args, " ")}
			if maxPrice > 0 {
				query.Filters.MaxPrice = &maxPrice
			}
			if minPrice > 0 {
				query.Filters.MinPrice = &minPrice
			}
			if minDiscount > 0 {
				query.Filters.MinDiscountPercent = &minDiscount
			}
			query.Filters.Brand = brand
			query.Filters.CategoryHint = category

			result, err := d.pipeline.RunSelection(context.Background(), query, userID)
			if err != nil {
				if reason, ok := catalog.AsNoMatch(err); ok {
					fmt.Fprintf(os.Stderr, "no match: %s\n", reason)
					return nil
				}
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().IntVar(&maxPrice, "max-price", 0, "price ceiling in rupees")
	cmd.Flags().IntVar(&minPrice, "min-price", 0, "price floor in rupees")
	cmd.Flags().IntVar(&minDiscount, "min-discount", 0, "minimum discount percent")
	cmd.Flags().StringVar(&brand, "brand", "", "restrict to one brand")
	cmd.Flags().StringVar(&category, "category", "", "category hint (monitor, gaming_monitor, laptop)")
	cmd.Flags().Int64Var(&userID, "user", 0, "user id for reproducible random selection")
	return cmd
}

func closeDeps(d *deps) {
	if d.db != nil {
		if err := d.db.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			fmt.Fprintf(os.Stderr, "close db: %v\n", err)
		}
	}
}
