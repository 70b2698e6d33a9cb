package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/shop/internal/adapter/storage"
	"github.com/rl1809/shop/internal/config"
	"github.com/rl1809/shop/internal/core/domain"
	"github.com/rl1809/shop/internal/core/service"
	"github.com/rl1809/shop/internal/platform/logger"
)

const (
	initialStock  = 20
	totalRequests = 50
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()
	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	nop := logger.NewNop()

	// Initialize database
	store, err := storage.Open(cfg.Database, nop)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	// Initialize services
	items := service.NewItemService(store, nop)
	members := service.NewMemberService(store, nop)
	orderService := service.NewOrderService(store, store.Queries(cfg.Query.BatchSize), nil, nop)

	run := uuid.NewString()[:8]
	memberID, err := members.Join(ctx, "stress-"+run, domain.NewAddress("Seoul", "1", "11"))
	if err != nil {
		log.Fatalf("failed to create member: %v", err)
	}
	item, err := items.RegisterItem(ctx, service.NewItemCommand{
		Kind:          domain.ItemKindBook,
		Name:          "stress-item-" + run,
		Price:         10000,
		StockQuantity: initialStock,
	})
	if err != nil {
		log.Fatalf("failed to create item: %v", err)
	}

	// Counters
	var successCount atomic.Int32
	var soldOutCount atomic.Int32
	var failCount atomic.Int32

	// Spawn concurrent requests
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := orderService.PlaceOrder(ctx, memberID, item.ID, 1)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				soldOutCount.Add(1)
			default:
				failCount.Add(1)
				log.Printf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	soldOut := soldOutCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Driver:           %s\n", cfg.Database.Driver)
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Sold Out:         %d\n", soldOut)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Assertions
	if success == initialStock && soldOut == totalRequests-initialStock {
		fmt.Printf("PASS: Exactly %d orders succeeded, %d sold out\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d sold out, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, soldOut)
	}

	// Verify final stock
	final, err := items.FindItem(ctx, item.ID)
	if err != nil {
		log.Fatalf("failed to read item: %v", err)
	}
	fmt.Printf("Final Stock:      %d\n", final.StockQuantity())

	if final.StockQuantity() == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", final.StockQuantity())
	}
}
