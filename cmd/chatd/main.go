package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disasternet/chatd/internal/api"
	"github.com/disasternet/chatd/internal/config"
	"github.com/disasternet/chatd/internal/discovery"
	"github.com/disasternet/chatd/internal/server"
	"github.com/disasternet/chatd/internal/stats"
)

func main() {
	logger := log.New(os.Stderr, "[disasternet] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config: ", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	chatLog := server.NewChatLog(logger, cfg.LogFile)

	chatServer, err := server.NewChatServer(logger, chatLog, statsUpdater)
	if err != nil {
		logger.Fatal("new chat server: ", err)
	}

	srv := api.NewServer(mux, logger, chatServer, cfg)

	disc := discovery.NewService(logger, statsUpdater, cfg.Port, cfg.Room, nil)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	chatLog.Run()
	go chatServer.Run()

	if cfg.DisableDiscovery {
		logger.Println("discovery disabled")
	} else {
		disc.Run()
	}

	logger.Printf("room %q, chat log %s", cfg.Room, cfg.LogFile)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	if !cfg.DisableDiscovery {
		disc.Shutdown()
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	if err := chatServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("chat server shutdown:", err)
	}

	if err := chatLog.Close(); err != nil {
		logger.Println("chat log close:", err)
	}

	logger.Println("shutdown complete")
}
