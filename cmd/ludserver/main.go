// ludserver is a small IRC style chat server. Clients register with NICK and
// USER, join channels, and relay messages to each other.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ludnet/ludserver"
	"github.com/ludnet/ludserver/internal/logging"
)

func main() {
	log.SetFlags(0)

	args, err := getArgs()
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := ludserver.LoadConfig(args.ConfigFile)
	if err != nil {
		log.Fatalf("Configuration problem: %s", err)
	}

	server := ludserver.NewServer(cfg, logging.New())

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalChan
		server.Shutdown()
	}()

	// A bind failure lands here. Anything going wrong on a single
	// connection never does.
	if err := server.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
