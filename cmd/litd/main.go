package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	lit "github.com/0x5487/lit-engine"
	"github.com/0x5487/lit-engine/protocol"
	"github.com/gorilla/websocket"
)

const securityID uint32 = 1001

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func main() {
	addr := flag.String("addr", ":8080", "listen address for the depth feed and metrics")
	rate := flag.Duration("rate", 50*time.Millisecond, "interval between generated orders")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	lit.SetLogger(logger)

	metrics := lit.NewMetrics("lit")
	events := lit.NewDiscardEventPublisher()
	trades := lit.NewMemoryTradePublisher()

	gateway := lit.NewMatchingGateway(events, trades, lit.WithGatewayMetrics(metrics))
	if err := gateway.CreateInstrument(securityID, "0.01"); err != nil {
		logger.Error("failed to create instrument", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := gateway.SetMarketState(ctx, securityID, lit.Open); err != nil {
		logger.Error("failed to open market", "error", err)
		os.Exit(1)
	}

	stop := make(chan struct{})
	go feedOrders(ctx, gateway, *rate, stop)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveDepth(gateway, w, r)
	})

	server := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		logger.Info("litd listening", "addr", *addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", "error", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	close(stop)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	if err := gateway.Shutdown(shutdownCtx); err != nil {
		logger.Error("gateway shutdown failed", "error", err)
	}
	logger.Info("litd stopped", "trades", trades.Count())
}

// feedOrders generates a small random order flow around a drifting mid.
func feedOrders(ctx context.Context, gateway *lit.MatchingGateway, rate time.Duration, stop chan struct{}) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	mid := 100.00

	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		mid += (rng.Float64() - 0.5) * 0.1
		offset := (rng.Float64() - 0.5) * 2.0
		price := strconv.FormatFloat(mid+offset, 'f', 2, 64)

		side := protocol.SideBuy
		if rng.Intn(2) == 0 {
			side = protocol.SideSell
		}

		cmd := &protocol.PlaceOrderCommand{
			Side:      side,
			OrderType: protocol.OrderTypeLimit,
			Price:     price,
			Quantity:  uint64(rng.Intn(500) + 1),
			Owner:     int64(rng.Intn(10) + 1),
			Timestamp: time.Now().UnixNano(),
		}

		if err := gateway.PlaceOrder(ctx, securityID, cmd); err != nil {
			return
		}
	}
}

// serveDepth streams L2 snapshots to a websocket client until it leaves.
func serveDepth(gateway *lit.MatchingGateway, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	instrument := gateway.Instrument(securityID)
	if instrument == nil {
		return
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		depth, err := instrument.Depth(20)
		if err != nil {
			return
		}
		if err := conn.WriteJSON(depth); err != nil {
			return
		}
	}
}
