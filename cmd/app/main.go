package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"FinSignal/internal/di"
	"FinSignal/pkg/config"
	"FinSignal/pkg/server"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	job := flag.String("job", server.JobIndicators, "job to run: "+strings.Join(server.Jobs, "|"))
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	err = app.Run(*job)
	cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", *job, err)
		os.Exit(1)
	}
}
