package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shubhamkumar-dianapps/Ecommerce/internal/addresses"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/cart"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/catalog"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/config"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/events"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/httpx"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/inventory"
	kafkax "github.com/shubhamkumar-dianapps/Ecommerce/internal/kafka"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/orders"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/payments"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/postgres"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/pricing"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/redisx"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/returns"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer (topic per message)
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.Start(ctx)
	pub := &events.Publisher{Producer: prod, Service: cfg.ServiceName}

	// Repos & services
	catalogRepo := &catalog.Repo{DB: db}
	cartRepo := &cart.Repo{DB: db, Catalog: catalogRepo}
	addrRepo := &addresses.Repo{DB: db}
	ledger := &inventory.Ledger{DB: db, Events: pub}
	orderSvc := &orders.Service{DB: db, Events: pub, Redis: rdb}
	checkoutSvc := &orders.CheckoutService{
		DB:       db,
		Shipping: pricing.StandardShipping(cfg.FreeShippingCents, cfg.FlatShippingCents),
		Tax:      pricing.FlatRateTax(cfg.TaxRateBps),
		Events:   pub,
		Redis:    rdb,
	}
	returnsSvc := &returns.Service{
		DB:         db,
		Orders:     orderSvc,
		Gateway:    payments.LogGateway{},
		Events:     pub,
		Redis:      rdb,
		WindowDays: cfg.ReturnWindowDays,
	}

	// Router & handlers
	router := httpx.NewRouter()
	(&httpx.CartHandler{Carts: cartRepo}).Register(router)
	(&httpx.OrdersHandler{Checkout: checkoutSvc, Orders: orderSvc, Redis: rdb}).Register(router)
	(&httpx.ReturnsHandler{Returns: returnsSvc}).Register(router)
	(&httpx.CatalogHandler{Catalog: catalogRepo, Ledger: ledger}).Register(router)
	(&httpx.AddressesHandler{Addresses: addrRepo}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	cancel()          // stop producer loop -> flush & close writer
	prod.WaitClosed() // drain
}
