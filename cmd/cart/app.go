package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/batgear/batstore-backend/internal/cartengine"
	"github.com/batgear/batstore-backend/pkg/shopclient"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const envPrefix = "BATSTORE"

var errUsage = errors.New("usage")

type cliConfig struct {
	APIURL    string        `envconfig:"API_URL" default:"http://localhost:5000/api"`
	Token     string        `envconfig:"TOKEN"`
	Timeout   time.Duration `envconfig:"TIMEOUT" default:"30s"`
	CartDir   string        `envconfig:"CART_DIR" default:".batstore"`
	CartKey   string        `envconfig:"CART_KEY"`
	RedisAddr string        `envconfig:"REDIS_ADDR"`
	CartTTL   time.Duration `envconfig:"CART_TTL" default:"720h"`
	LogLevel  string        `envconfig:"LOG_LEVEL" default:"warn"`

	ShipName    string `envconfig:"SHIP_NAME"`
	ShipStreet  string `envconfig:"SHIP_STREET"`
	ShipCity    string `envconfig:"SHIP_CITY"`
	ShipState   string `envconfig:"SHIP_STATE"`
	ShipZipCode string `envconfig:"SHIP_ZIP"`
	ShipPhone   string `envconfig:"SHIP_PHONE"`
}

func (c cliConfig) address() cartengine.ShippingAddress {
	return cartengine.ShippingAddress{
		Name:    c.ShipName,
		Street:  c.ShipStreet,
		City:    c.ShipCity,
		State:   c.ShipState,
		ZipCode: c.ShipZipCode,
		Phone:   c.ShipPhone,
	}
}

// shopAPI is the part of the storefront API the CLI talks to
type shopAPI interface {
	cartengine.OrderSubmitter
	GetProduct(ctx context.Context, id uint) (*cartengine.ProductDTO, error)
	ListOrders(ctx context.Context, page int) (*shopclient.OrderList, error)
}

type app struct {
	engine  *cartengine.Engine
	api     shopAPI
	address cartengine.ShippingAddress
	out     io.Writer
}

// newApp wires the engine to a file or redis backed store and the API client
func newApp(ctx context.Context, cfg cliConfig, out io.Writer) (*app, func(), error) {
	client, err := shopclient.NewClient(shopclient.Config{
		BaseURL: cfg.APIURL,
		Token:   cfg.Token,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, nil, err
	}

	var store cartengine.Store
	closeFn := func() {}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		store = cartengine.NewRedisStore(rdb, cfg.CartTTL)
		closeFn = func() { _ = rdb.Close() }
	} else {
		fs, err := cartengine.NewFileStore(cfg.CartDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open cart directory: %w", err)
		}
		store = fs
	}

	engine, err := cartengine.New(ctx, store, cartengine.WithKey(cfg.CartKey))
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	return &app{engine: engine, api: client, address: cfg.address(), out: out}, closeFn, nil
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "show":
		a.printCart()
		return nil

	case "add":
		if len(rest) != 1 {
			return errUsage
		}
		id, err := parseID(rest[0])
		if err != nil {
			return err
		}
		return a.add(ctx, id)

	case "update":
		if len(rest) != 2 {
			return errUsage
		}
		id, err := parseID(rest[0])
		if err != nil {
			return err
		}
		qty, err := strconv.Atoi(rest[1])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", rest[1])
		}
		return a.update(ctx, id, qty)

	case "remove":
		if len(rest) != 1 {
			return errUsage
		}
		id, err := parseID(rest[0])
		if err != nil {
			return err
		}
		if err := a.engine.RemoveFromCart(ctx, id); err != nil {
			return err
		}
		a.printCart()
		return nil

	case "clear":
		if err := a.engine.ClearCart(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Cart cleared.")
		return nil

	case "checkout":
		if len(rest) != 1 {
			return errUsage
		}
		return a.checkout(ctx, rest[0])

	case "orders":
		page := 1
		if len(rest) == 1 {
			p, err := strconv.Atoi(rest[0])
			if err != nil || p < 1 {
				return fmt.Errorf("invalid page %q", rest[0])
			}
			page = p
		}
		return a.orders(ctx, page)

	default:
		return errUsage
	}
}

func (a *app) add(ctx context.Context, id uint) error {
	product, err := a.api.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	a.engine.SetInitialStock(product.ID, product.Stock)

	added, err := a.engine.AddToCart(ctx, *product)
	if err != nil {
		return err
	}
	if !added {
		return fmt.Errorf("%w: %s is out of stock", cartengine.ErrInsufficientStock, product.Name)
	}
	fmt.Fprintf(a.out, "Added %s (%d in cart).\n", product.Name, a.engine.ItemQuantity(product.ID))
	a.printCart()
	return nil
}

func (a *app) update(ctx context.Context, id uint, qty int) error {
	if !a.engine.IsInCart(id) {
		return fmt.Errorf("product %d is not in the cart", id)
	}
	if qty > 0 {
		product, err := a.api.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		a.engine.SetInitialStock(product.ID, product.Stock)
	}
	if err := a.engine.UpdateQuantity(ctx, id, qty); err != nil {
		return err
	}
	a.printCart()
	return nil
}

func (a *app) checkout(ctx context.Context, paymentMethod string) error {
	receipt, err := a.engine.Checkout(ctx, a.api, a.address, paymentMethod)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Order %s placed (%s), total %s.\n",
		receipt.OrderNumber, receipt.Status, receipt.Total.StringFixed(2))
	return nil
}

func (a *app) orders(ctx context.Context, page int) error {
	list, err := a.api.ListOrders(ctx, page)
	if err != nil {
		return err
	}
	if len(list.Orders) == 0 {
		fmt.Fprintln(a.out, "No orders yet.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tSTATUS\tTOTAL\tPLACED")
	for _, o := range list.Orders {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.OrderNumber, o.Status, o.Total.StringFixed(2), o.CreatedAt.Format("2006-01-02"))
	}
	tw.Flush()
	fmt.Fprintf(a.out, "Page %d of %d (%d orders)\n",
		list.Pagination.CurrentPage, list.Pagination.TotalPages, list.Pagination.TotalOrders)
	return nil
}

func (a *app) printCart() {
	items := a.engine.Items()
	if len(items) == 0 {
		fmt.Fprintln(a.out, "Your cart is empty.")
		return
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRODUCT\tQTY\tPRICE\tLINE")
	for _, item := range items {
		line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n",
			item.ProductID, item.Name, item.Quantity, item.UnitPrice.StringFixed(2), line.StringFixed(2))
	}
	tw.Flush()

	totals := a.engine.Totals()
	fmt.Fprintf(a.out, "Items: %d\n", a.engine.ItemsCount())
	fmt.Fprintf(a.out, "Subtotal: %s\n", totals.Subtotal.StringFixed(2))
	fmt.Fprintf(a.out, "Tax: %s\n", totals.Tax.StringFixed(2))
	fmt.Fprintf(a.out, "Shipping: %s\n", totals.Shipping.StringFixed(2))
	fmt.Fprintf(a.out, "Total: %s\n", totals.Total.StringFixed(2))
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid product id %q", raw)
	}
	return uint(id), nil
}
