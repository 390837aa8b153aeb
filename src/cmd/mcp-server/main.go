// Package main provides the MCP server entry point. The server exposes the
// build service and Helix queries as tools over stdin/stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"pipeline-agent/src/azdo"
	"pipeline-agent/src/config"
	"pipeline-agent/src/helix"
	"pipeline-agent/src/logger"
	"pipeline-agent/src/mcp"
	"pipeline-agent/src/provider"
	"pipeline-agent/src/query"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "Path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", provider.WrapError(err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// stdout carries the protocol, so logs go to stderr.
	log, err := logger.NewConsoleLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := context.Background()
	tokens := cfg.Credentials()

	builds, err := azdo.Connect(ctx, azdo.Config{
		BaseURL:      cfg.Azdo.URL,
		Organization: cfg.Azdo.Organization,
		Project:      cfg.Azdo.Project,
		Logger:       log,
		FanOut:       cfg.FanOut,
	}, tokens)
	if err != nil {
		return err
	}

	// Helix tools report the backend as unavailable when the cluster
	// credential cannot be obtained; the build tools keep working.
	var analytics provider.AnalyticsQueries
	var consoles provider.ConsoleFetcher
	client, err := helix.Connect(ctx, helix.Config{
		ClusterURL: cfg.Helix.Cluster,
		Database:   cfg.Helix.Database,
		Logger:     log,
	}, tokens)
	if err != nil {
		log.Error("Helix analytics disabled: %v", err)
	} else {
		analytics = client
		consoles = helix.NewConsoleFetcher(cfg.FanOut, log)
	}

	svc := query.New(builds, analytics, consoles, log)
	return mcp.NewServer(svc, version, log).Run()
}
