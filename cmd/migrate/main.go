// Command migrate applies the calibration history schema without starting the
// bridge. It reads the same environment as the server.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JorgeS15/AirLab/internal/config"
	"github.com/JorgeS15/AirLab/internal/db"
	"github.com/JorgeS15/AirLab/internal/db/migrate"
	"github.com/JorgeS15/AirLab/internal/logging"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <command>\n  up  apply pending schema migrations\n", os.Args[0])
		os.Exit(2)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg, version, "airlab-migrate"))

	switch os.Args[1] {
	case "up":
		conn, err := db.Open(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "db open: %v\n", err)
			os.Exit(1)
		}
		n, err := migrate.Run(conn)
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%d migration(s) applied\n", n)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		os.Exit(2)
	}
}
