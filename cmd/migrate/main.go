package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"golinks.org/internal/migrate"
)

func main() {
	var (
		dir     = flag.String("dir", "migrations", "directory containing migration files")
		dsn     = flag.String("dsn", os.Getenv("DATABASE_URL"), "postgres connection string")
		timeout = flag.Duration("timeout", 2*time.Minute, "overall timeout")
	)
	flag.Parse()

	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "missing -dsn flag or DATABASE_URL")
		os.Exit(2)
	}
	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	mgr := migrate.NewManager(db, *dir)
	switch cmd {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "status":
		var applied []string
		applied, err = mgr.Status(ctx)
		for _, name := range applied {
			fmt.Println(name)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want up, down, or status)\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		os.Exit(1)
	}
}
