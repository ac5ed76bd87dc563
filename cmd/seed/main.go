// Command seed provisions users from a YAML fixture into the configured directory.
//
//	seed -f users.yaml
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/hongminglow/dealer-gateway/internal/config"
	"github.com/hongminglow/dealer-gateway/internal/storage/backend"
	"github.com/hongminglow/dealer-gateway/internal/storage/seed"
)

func main() {
	path := flag.String("f", "users.yaml", "fixture file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
	cfg, err := config.LoadDirectory()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	file, err := os.Open(*path)
	if err != nil {
		log.Fatalf("open fixture: %v", err)
	}
	defer file.Close()

	fixture, err := seed.Parse(file)
	if err != nil {
		log.Fatalf("%s: %v", *path, err)
	}

	ctx := context.Background()
	store, closeStore, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("init directory: %v", err)
	}
	defer closeStore()

	res, err := seed.Load(ctx, store, fixture)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("seeded %d users (%d already present)", res.Created, res.Skipped)
}
