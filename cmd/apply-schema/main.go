package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"wisefleet-dashboard/internal/config"
	"wisefleet-dashboard/internal/database"

	_ "github.com/lib/pq"
)

func main() {
	schemaFile := "scripts/schema.sql"
	if len(os.Args) > 1 {
		schemaFile = os.Args[1]
	}

	sqlContent, err := os.ReadFile(schemaFile)
	if err != nil {
		log.Fatalf("Failed to read schema file: %v", err)
	}

	cfg := config.Load()
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Connected to database: %s\n", cfg.Database.Database)

	// 注释行先去掉，再按分号拆句，避免行首注释把整条语句带掉
	var sb strings.Builder
	for _, line := range strings.Split(string(sqlContent), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	executed := 0
	for i, stmt := range strings.Split(sb.String(), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Failed to execute statement %d: %v\nSQL: %s", i+1, err, stmt)
		}
		executed++
	}

	fmt.Printf("Applied %s (%d statements)\n", schemaFile, executed)
}
