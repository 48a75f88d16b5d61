package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/Waterbottle88/todolist-api/internal/api"
	"github.com/Waterbottle88/todolist-api/internal/config"
	"github.com/Waterbottle88/todolist-api/internal/db"
	"github.com/Waterbottle88/todolist-api/pkg/engine"
	"github.com/Waterbottle88/todolist-api/pkg/task"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	store := task.NewPgStore(pool)
	if err := store.EnsureTable(ctx); err != nil {
		log.Fatalf("ensure tasks table: %v", err)
	}

	server := api.New(engine.New(store))

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("todolist-api listening on %s", addr)
	if err := http.ListenAndServe(addr, server); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
