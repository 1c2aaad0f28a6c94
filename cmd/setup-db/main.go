package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/joho/godotenv"
)

// church-setup-db creates the database named in CHURCH_DB_URL by connecting
// to the maintenance database on the same server.
func main() {
	_ = godotenv.Load()

	dbURL := os.Getenv("CHURCH_DB_URL")
	if dbURL == "" {
		log.Fatal("CHURCH_DB_URL is required")
	}

	parsed, err := url.Parse(dbURL)
	if err != nil {
		log.Fatalf("failed to parse DB URL: %v", err)
	}
	dbName, err := url.PathUnescape(strings.TrimPrefix(parsed.Path, "/"))
	if err != nil {
		log.Fatalf("failed to unescape database name: %v", err)
	}
	if dbName == "" {
		log.Fatal("no database name in URL")
	}

	admin := *parsed
	admin.Path = "/" + envOr("CHURCH_DB_MAINTENANCE_DB", "postgres")

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, admin.String())
	if err != nil {
		log.Fatalf("failed to connect to maintenance database: %v", err)
	}
	defer conn.Close(ctx) //nolint:errcheck

	_, err = conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{dbName}.Sanitize())
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == "42P04":
		fmt.Printf("database %q already exists\n", dbName)
	case err != nil:
		log.Fatalf("failed to create database: %v", err)
	default:
		fmt.Printf("database %q created\n", dbName)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
