package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"

	"hydrakit/internal/catalog"
	"hydrakit/internal/invoice"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog <categories|series <category>|products <series>|search <text...>>",
	Short: "Browse the supplier product catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cfg.catalogClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		var out any
		switch args[0] {
		case "categories":
			out, err = c.Categories(ctx)
		case "series":
			if err := need(args[1:], 1, "series"); err != nil {
				return err
			}
			out, err = c.Series(ctx, args[1])
		case "products":
			if err := need(args[1:], 1, "products"); err != nil {
				return err
			}
			out, err = c.Products(ctx, args[1])
		case "search":
			out, err = c.Search(ctx, catalog.SearchQuery{Query: strings.Join(args[1:], " ")})
		default:
			return fmt.Errorf("%w: unknown catalog view %q", errUsage, args[0])
		}
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	},
}

var (
	flagCustomerName  string
	flagCustomerEmail string
	flagCompany       string
	flagDiscount      float64
	flagNotes         string
	flagSeries        string
	flagSend          bool
)

var invoiceCmd = &cobra.Command{
	Use:   "invoice <product>=<qty>...",
	Short: "Build a supplier invoice from catalog products",
	Long: `Products are looked up by id or SKU in the series given by --series.
With --send the invoice is posted to KIT_MAIL_URL.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cfg.catalogClient()
		if err != nil {
			return err
		}
		products, err := c.Products(cmd.Context(), flagSeries)
		if err != nil {
			return err
		}
		lines, err := resolveLines(products, args)
		if err != nil {
			return err
		}
		customer := invoice.Customer{Name: flagCustomerName, Email: flagCustomerEmail, Company: flagCompany}
		inv, err := invoice.Build(customer, lines, flagDiscount, flagNotes, time.Now())
		if err != nil {
			return err
		}
		if flagSend {
			d := cfg.dispatcher()
			if d == nil {
				return fmt.Errorf("--send needs KIT_MAIL_URL")
			}
			if err := d.Send(cmd.Context(), inv); err != nil {
				return err
			}
			log.Infof("invoice %s sent to %s", inv.Number, inv.Customer.Email)
		}
		return printJSON(cmd, inv)
	},
}

func init() {
	f := invoiceCmd.Flags()
	f.StringVar(&flagCustomerName, "name", "", "customer name")
	f.StringVar(&flagCustomerEmail, "email", "", "customer email")
	f.StringVar(&flagCompany, "company", "", "customer company")
	f.Float64Var(&flagDiscount, "discount", 0, "discount percent")
	f.StringVar(&flagNotes, "notes", "", "notes printed on the invoice")
	f.StringVar(&flagSeries, "series", "", "series holding the products")
	f.BoolVar(&flagSend, "send", false, "post the invoice to the mail service")
	_ = invoiceCmd.MarkFlagRequired("series")
	rootCmd.AddCommand(catalogCmd, invoiceCmd)
}

// resolveLines maps "<id or sku>=<qty>" arguments onto products. A missing
// quantity means one.
func resolveLines(products []catalog.Product, args []string) ([]invoice.Line, error) {
	lines := make([]invoice.Line, 0, len(args))
	for _, arg := range args {
		ref, qtyText, hasQty := strings.Cut(arg, "=")
		qty := 1
		if hasQty {
			n, err := strconv.Atoi(qtyText)
			if err != nil {
				return nil, fmt.Errorf("%w: quantity in %q", errUsage, arg)
			}
			qty = n
		}
		p, ok := findProduct(products, ref)
		if !ok {
			return nil, fmt.Errorf("product %q not in series", ref)
		}
		lines = append(lines, invoice.Line{Product: p, Quantity: qty})
	}
	return lines, nil
}

func findProduct(products []catalog.Product, ref string) (catalog.Product, bool) {
	for _, p := range products {
		if p.ID == ref || (p.SKU != "" && strings.EqualFold(p.SKU, ref)) {
			return p, true
		}
	}
	return catalog.Product{}, false
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
