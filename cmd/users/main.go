package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/sbilibin2017/gw-todo/internal/app"
	"github.com/sbilibin2017/gw-todo/internal/config"
	"github.com/sbilibin2017/gw-todo/internal/routers"
)

//go:generate swag init -g main.go -d ./,../../internal/handlers,../../internal/models -o ../../docs

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

const (
	serviceName = "users"
	defaultPort = "5000"
)

// @title gw-todo API
// @version 1.0.0
// @description Users and todos services of the todo application
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	printBuildInfo()
	configPath := parseFlags()

	cfg, err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := app.Run(context.Background(), serviceName, cfg, routers.NewUsersRouter); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Version: %s\nCommit: %s\nBuild: %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// parseConfig loads environment variables from a file and returns the
// service configuration.
func parseConfig(path string) (app.Config, error) {
	cfg := app.Config{Port: defaultPort}
	if err := config.Load(path, &cfg); err != nil {
		return app.Config{}, err
	}
	return cfg, nil
}
