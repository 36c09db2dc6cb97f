package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/iota-uz/opsdesk/internal/server"
	"github.com/iota-uz/opsdesk/pkg/configuration"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conf := configuration.Use()
	defer conf.Unload()

	log.Printf("Listening on: %s\n", conf.SocketAddress)
	if err := server.Serve(ctx, conf); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
