package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"tableside/internal/broadcast"
	"tableside/internal/cart"
	"tableside/internal/config"
	"tableside/internal/connections/database"
	"tableside/internal/connections/rabbitmq"
	"tableside/internal/httpapi"
	"tableside/internal/httpx"
	"tableside/internal/hub"
	"tableside/internal/kitchen"
	"tableside/internal/logger"
	"tableside/internal/menu"
	"tableside/internal/order"
	"tableside/internal/session"
)

func main() {
	cfgPath := flag.String("config", "config.yml", "path to YAML config")
	port := flag.Int("port", 0, "override http port")
	flag.Parse()

	_ = godotenv.Load()
	lg := logger.New("tableside")

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		lg.Error("config_load_failed", err, map[string]any{"path": *cfgPath})
		os.Exit(1)
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		lg.Error("db_connect_failed", err, nil)
		os.Exit(1)
	}
	defer db.Close()
	lg.Info("db_connected", map[string]any{"host": cfg.Database.Host, "database": cfg.Database.Database})

	mq, err := rabbitmq.Dial(cfg.RabbitMQ)
	if err != nil {
		lg.Error("rabbitmq_connect_failed", err, nil)
		os.Exit(1)
	}
	defer mq.Close()
	if err := mq.DeclareTopology(); err != nil {
		lg.Error("rabbitmq_topology_failed", err, nil)
		os.Exit(1)
	}
	lg.Info("rabbitmq_connected", map[string]any{"host": cfg.RabbitMQ.Host})

	bus := broadcast.NewAMQPBroadcaster(mq, lg)

	sessionSvc := session.NewSessionService(session.NewSessionRepository(db), lg)
	menuSvc := menu.NewMenuService(menu.NewCatalog(db), sessionSvc, bus, lg)
	cartSvc := cart.NewCartService(cart.NewCartRepository(db), sessionSvc, menuSvc, bus, lg, cfg.Pricing.TaxRate)
	orderSvc := order.NewOrderService(order.NewOrderRepository(db), sessionSvc, bus, lg)
	kitchenSvc := kitchen.NewKitchenService(kitchen.NewKitchenRepository(db), bus, lg, cfg.Kitchen.StrictReady)

	h := hub.New(sessionSvc, kitchenSvc, lg)
	go func() {
		if err := h.ConsumeLoop(ctx, mq); err != nil {
			lg.Error("hub_consume_failed", err, nil)
			cancel()
		}
	}()

	router := httpapi.NewRouter(httpapi.Services{
		Sessions: sessionSvc,
		Carts:    cartSvc,
		Orders:   orderSvc,
		Kitchen:  kitchenSvc,
		Menu:     menuSvc,
		Hub:      h,
	})

	srv := httpx.New(":"+strconv.Itoa(cfg.HTTP.Port), router)
	lg.Info("service_started", map[string]any{"service": "tableside", "port": cfg.HTTP.Port})
	if err := srv.Run(ctx); err != nil {
		lg.Error("fatal", err, nil)
		os.Exit(1)
	}
	lg.Info("graceful_shutdown", nil)
}
