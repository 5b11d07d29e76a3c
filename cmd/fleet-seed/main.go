package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"wisefleet-dashboard/internal/domain"

	"github.com/go-resty/resty/v2"
)

// seedResponse 服务端统一包络（result 原样透传）
type seedResponse struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "dashboard base URL")
	file := flag.String("file", "scripts/seed.json", "JSON file with an array of vehicle drafts")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	flag.Parse()

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("Failed to read seed file: %v", err)
	}

	var drafts []domain.VehicleDraft
	if err := json.Unmarshal(raw, &drafts); err != nil {
		log.Fatalf("Failed to parse seed file: %v", err)
	}
	if len(drafts) == 0 {
		log.Fatalf("Seed file %s has no vehicles", *file)
	}

	client := resty.New().
		SetBaseURL(*addr).
		SetTimeout(*timeout).
		SetHeader("Content-Type", "application/json")

	var result seedResponse
	resp, err := client.R().
		SetBody(map[string]any{"vehicles": drafts}).
		SetResult(&result).
		Post("/fleet/api/v1/vehicles/seed")
	if err != nil {
		log.Fatalf("Seed request failed: %v", err)
	}
	if resp.StatusCode() != 200 {
		log.Fatalf("Seed request returned HTTP %d: %s", resp.StatusCode(), resp.String())
	}

	if result.Type != "success" {
		fmt.Printf("Seed failed: %s\n", result.Message)
		if len(result.Result) > 0 {
			fmt.Printf("Partial result: %s\n", result.Result)
		}
		os.Exit(1)
	}

	fmt.Printf("Seeded %d vehicles from %s\n", len(drafts), *file)
	fmt.Printf("Server result: %s\n", result.Result)
}
