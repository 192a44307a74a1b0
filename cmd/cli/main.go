package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/dvloznov/card-txn-console/internal/app"
	"github.com/dvloznov/card-txn-console/internal/config"
	"github.com/dvloznov/card-txn-console/internal/domain"
	"github.com/dvloznov/card-txn-console/internal/filter"
	"github.com/dvloznov/card-txn-console/internal/forms"
	"github.com/dvloznov/card-txn-console/internal/logger"
	"github.com/dvloznov/card-txn-console/internal/money"
	"github.com/dvloznov/card-txn-console/internal/screens"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "dashboard":
		runDashboard(log)
	case "products":
		runProducts(log)
	case "customers":
		runCustomers(log)
	case "transactions":
		runTransactions(log)
	case "detail":
		runDetail(log)
	case "add-product":
		runAddProduct(log)
	case "add-customer":
		runAddCustomer(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Card Transaction Console CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  dashboard      Show transaction totals and pending queries")
	fmt.Println("  products       List products with total quantity sold")
	fmt.Println("  customers      List cardholders with transaction count and spend")
	fmt.Println("  transactions   List transactions, optionally filtered")
	fmt.Println("  detail         Show one transaction by its composite key")
	fmt.Println("  add-product    Validate a product and export it as XML")
	fmt.Println("  add-customer   Validate a customer and export it as JSON")
	fmt.Println("  help           Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
	fmt.Println("Configuration is read from -config and CARDTXN_* environment variables.")
}

// command parses the subcommand flags and assembles the console.
func command(log zerolog.Logger, fs *flag.FlagSet) (context.Context, *app.App, context.CancelFunc) {
	configPath := fs.String("config", os.Getenv("CARDTXN_CONFIG"), "Path to YAML config file (or set CARDTXN_CONFIG env)")
	fs.Parse(os.Args[2:])

	cfg, err := config.Load(*configPath, os.Getenv)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	log, err = logger.Configure(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		log = logger.New()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Failed to start console")
	}

	return ctx, a, func() {
		a.Close()
		cancel()
	}
}

func checkLoad(log zerolog.Logger, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, screens.ErrLoadFailed) {
		log.Fatal().Err(err).Msg("Could not load transactions")
	}
	log.Fatal().Err(err).Msg("Command failed")
}

func runDashboard(log zerolog.Logger) {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	ctx, a, done := command(log, fs)
	defer done()

	view, err := a.Service.Dashboard(ctx)
	checkLoad(log, err)

	fmt.Println("\n=== Dashboard ===")
	fmt.Printf("Transactions: %s\n", humanize.Comma(int64(view.Stats.TransactionCount)))
	fmt.Printf("Products:     %s\n", humanize.Comma(int64(view.Stats.ProductCount)))
	fmt.Printf("Customers:    %s\n", humanize.Comma(int64(view.Stats.CustomerCount)))
	fmt.Printf("Total:        %s\n", view.Stats.FormattedTotal)

	fmt.Printf("\n=== Pending Queries (%d) ===\n", len(view.PendingQueries))
	for _, q := range view.PendingQueries {
		fmt.Printf("%s  %s  %s  %s\n", q.QueryID, q.TxnID, q.SubmittedAt.Format("2006-01-02"), q.Summary)
	}
	fmt.Println()
}

func runProducts(log zerolog.Logger) {
	fs := flag.NewFlagSet("products", flag.ExitOnError)
	query := fs.String("q", "", "Filter by product ID or name")
	ctx, a, done := command(log, fs)
	defer done()

	view, err := a.Service.Products(ctx, *query)
	checkLoad(log, err)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT ID\tNAME\tPRICE\tCURRENCY\tQUANTITY")
	for _, p := range view.Products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ProductID, p.ProductName, p.Price, p.Currency, humanize.Ftoa(p.Quantity))
	}
	tw.Flush()
}

func runCustomers(log zerolog.Logger) {
	fs := flag.NewFlagSet("customers", flag.ExitOnError)
	query := fs.String("q", "", "Filter by card ID or cardholder name")
	ctx, a, done := command(log, fs)
	defer done()

	view, err := a.Service.Customers(ctx, *query)
	checkLoad(log, err)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CARD ID\tCARDHOLDER\tTRANSACTIONS\tTOTAL SPENT")
	for _, c := range view.Customers {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.CardID, c.CardholderName, c.TransactionCount, money.FormatUSD(c.TotalSpent))
	}
	tw.Flush()
}

func runTransactions(log zerolog.Logger) {
	fs := flag.NewFlagSet("transactions", flag.ExitOnError)
	status := fs.String("status", "", "Only show transactions with this status")
	query := fs.String("q", "", "Search transaction ID, product, cardholder and description")
	ctx, a, done := command(log, fs)
	defer done()

	view, err := a.Service.Transactions(ctx, filter.TxnFilter{Status: *status, Search: *query})
	checkLoad(log, err)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TXN ID\tPRODUCT\tCARD\tCARDHOLDER\tAMOUNT\tSTATUS")
	for _, t := range view.Transactions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s %s\t%s\n", t.TxnID, t.ProductID, t.CardID, t.CardholderName, t.Amount, t.Currency, t.Status)
	}
	tw.Flush()
	fmt.Printf("\n%d transaction(s)\n", len(view.Transactions))
}

func runDetail(log zerolog.Logger) {
	fs := flag.NewFlagSet("detail", flag.ExitOnError)
	txnID := fs.String("txn-id", "", "Transaction ID")
	productID := fs.String("product-id", "", "Product ID")
	cardID := fs.String("card-id", "", "Card ID")
	ctx, a, done := command(log, fs)
	defer done()

	key := domain.TxnKey{TxnID: *txnID, ProductID: *productID, CardID: *cardID}
	if !key.Valid() {
		log.Fatal().Msg("Error: --txn-id, --product-id and --card-id are required")
	}

	t, err := a.Service.TransactionDetail(ctx, key)
	if errors.Is(err, screens.ErrNotFound) {
		log.Fatal().Str("key", key.String()).Msg("Transaction not found")
	}
	checkLoad(log, err)

	fmt.Println("\n=== Transaction Details ===")
	fmt.Printf("Transaction: %s\n", t.TxnID)
	fmt.Printf("Product:     %s (%s)\n", t.ProductName, t.ProductID)
	fmt.Printf("Card:        %s (%s)\n", t.CardholderName, t.CardID)
	fmt.Printf("Amount:      %s %s\n", t.Amount, t.Currency)
	fmt.Printf("Quantity:    %s @ %s\n", t.Quantity, t.Price)
	fmt.Printf("Status:      %s\n", t.Status)
	if t.Description != "" {
		fmt.Printf("Description: %s\n", t.Description)
	}
	fmt.Println()
}

func runAddProduct(log zerolog.Logger) {
	fs := flag.NewFlagSet("add-product", flag.ExitOnError)
	var form forms.ProductForm
	fs.StringVar(&form.ProductID, "id", "", "Product ID")
	fs.StringVar(&form.ProductName, "name", "", "Product name")
	fs.StringVar(&form.Description, "description", "", "Product description")
	fs.StringVar(&form.Price, "price", "", "Unit price in USD")
	ctx, a, done := command(log, fs)
	defer done()

	saved, err := a.Service.SaveProduct(ctx, form)
	reportSaved(log, saved, err)
}

func runAddCustomer(log zerolog.Logger) {
	fs := flag.NewFlagSet("add-customer", flag.ExitOnError)
	var form forms.CustomerForm
	fs.StringVar(&form.CustomerID, "id", "", "Customer ID")
	fs.StringVar(&form.CustomerName, "name", "", "Customer name")
	fs.StringVar(&form.Status, "status", "", "Customer status")
	ctx, a, done := command(log, fs)
	defer done()

	saved, err := a.Service.SaveCustomer(ctx, form)
	reportSaved(log, saved, err)
}

func reportSaved(log zerolog.Logger, saved screens.SavedDocument, err error) {
	var verr *forms.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintf(os.Stderr, "%s (%s)\n", verr.Message, verr.Field)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to save document")
	}
	fmt.Printf("Saved %s to %s\n", saved.Name, saved.Location)
}
