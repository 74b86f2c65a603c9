package main

import (
	"context"
	"flag"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"deedvault/config"
	"deedvault/core"
	"deedvault/observability/logging"
	"deedvault/rpc"
	"deedvault/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logging.Setup("deedvault", "")
		logFatal("load config", err)
	}

	logger := logging.Setup("deedvault", cfg.Environment)

	seller, err := cfg.SellerAddress()
	if err != nil {
		logFatal("seller address", err)
	}
	inspector, err := cfg.InspectorAddress()
	if err != nil {
		logFatal("inspector address", err)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logFatal("open database", err)
	}
	defer db.Close()

	node := core.NewNode(db, seller, inspector)

	allocs := make([]core.SeedAllocation, 0, len(cfg.Allocations))
	for _, alloc := range cfg.Allocations {
		balance, ok := new(big.Int).SetString(strings.TrimSpace(alloc.Balance), 10)
		if !ok || balance.Sign() <= 0 {
			logger.Warn("skipping allocation with invalid balance",
				"address", alloc.Address, "balance", alloc.Balance)
			continue
		}
		allocs = append(allocs, core.SeedAllocation{
			Address: common.HexToAddress(alloc.Address),
			Balance: balance,
		})
	}
	if err := node.SeedAllocations(allocs); err != nil {
		logFatal("seed allocations", err)
	}

	vault, err := node.VaultAddress()
	if err != nil {
		logFatal("derive vault address", err)
	}
	logger.Info("node initialised",
		"seller", common.Address(seller).Hex(),
		"inspector", common.Address(inspector).Hex(),
		"vault", common.Address(vault).Hex(),
		"dataDir", cfg.DataDir)

	rpcServer := rpc.NewServer(node)
	srv := &http.Server{Addr: cfg.RPCAddress, Handler: rpcServer}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: metricsMux}

	go func() {
		logger.Info("JSON-RPC server listening", "addr", cfg.RPCAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logFatal("rpc listen", err)
		}
	}()
	go func() {
		logger.Info("metrics server listening", "addr", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logFatal("metrics listen", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("rpc shutdown failed", "err", err)
	}
	if err := metricsSrv.Shutdown(ctx); err != nil {
		logger.Error("metrics shutdown failed", "err", err)
	}
}

func logFatal(msg string, err error) {
	if err != nil {
		os.Stderr.WriteString(msg + ": " + err.Error() + "\n")
	}
	os.Exit(1)
}
