package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/batgear/batstore-backend/pkg/logger"
	"github.com/kelseyhightower/envconfig"
)

const usage = `Usage: cart <command> [args]

Commands:
  show                        print the cart and its totals
  add <productId>             add one unit of a product
  update <productId> <qty>    set the quantity of a cart line (0 removes it)
  remove <productId>          remove a product from the cart
  clear                       empty the cart
  checkout <paymentMethod>    place an order (credit_card, paypal, cod)
  orders [page]               list placed orders

Configuration is read from BATSTORE_* environment variables.`

func main() {
	var cfg cliConfig
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(2)
	}

	logger.Initialize(logger.Config{
		Level:       cfg.LogLevel,
		Format:      "console",
		Output:      os.Stderr,
		EnableColor: true,
	})

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, closeFn, err := newApp(ctx, cfg, os.Stdout)
	if err != nil {
		logger.Fatal("Failed to start cart", err)
	}
	defer closeFn()

	if err := app.run(ctx, os.Args[1:]); err != nil {
		if err == errUsage {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
