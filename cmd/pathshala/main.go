package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	appconfig "github.com/mahfuz-oronno/pathshala/config"
	"github.com/mahfuz-oronno/pathshala/internal/cache"
	"github.com/mahfuz-oronno/pathshala/internal/curriculum"
	srv "github.com/mahfuz-oronno/pathshala/internal/server"
)

func main() {
	var root = &cobra.Command{Use: "pathshala"}

	root.AddCommand(serveCMD(), migrateCMD(), preloadCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCMD() *cobra.Command {
	var serveAddr string
	var cfgPath string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if serveAddr == "" {
				serveAddr = os.Getenv("PATHSHALA_HTTP_ADDR")
			}
			return srv.Run(serveAddr, cfgPath)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serve.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return serve
}

func migrateCMD() *cobra.Command {
	var migDir string
	var direction string
	var steps int
	var cfgPath string

	var migrate = &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := appconfig.LoadConfig(cfgPath)
			return srv.Migrate(migDir, cfg.Databases.Postgres.DSN(), direction, steps)
		},
	}
	migrate.Flags().StringVar(&migDir, "dir", "file://migrations", "migrations source (file://migrations)")
	migrate.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	migrate.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return migrate
}

func preloadCMD() *cobra.Command {
	var cfgPath string
	var classLevel int
	var chapters string

	var preload = &cobra.Command{
		Use:   "preload",
		Short: "Download chapter PDFs into the local cache for offline use",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := appconfig.LoadConfig(cfgPath)
			if classLevel <= 0 {
				return fmt.Errorf("--class required")
			}

			var ids []string
			if chapters != "" {
				for _, id := range strings.Split(chapters, ",") {
					if id = strings.TrimSpace(id); id != "" {
						ids = append(ids, id)
					}
				}
			} else {
				for _, subject := range curriculum.Subjects(classLevel) {
					for _, ch := range curriculum.Chapters(classLevel, subject) {
						ids = append(ids, ch.ID)
					}
				}
			}
			if len(ids) == 0 {
				return fmt.Errorf("no chapters to preload for class %d", classLevel)
			}

			manager, err := cache.NewManager(cfg.Cache.Dir, srv.NewHTTPDownloader(cfg.Cache.SourceBaseURL),
				cache.WithTTL(cfg.Cache.TTL),
				cache.WithPreloadWorkers(cfg.Cache.PreloadWorkers),
				cache.WithDownloadTimeout(cfg.Cache.DownloadTimeout))
			if err != nil {
				return err
			}

			results := manager.PreloadChapters(context.Background(), classLevel, ids)
			failed := 0
			for _, id := range ids {
				status := "ok"
				if !results[id] {
					status = "FAILED"
					failed++
				}
				fmt.Printf("%-40s %s\n", id, status)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d chapters failed", failed, len(ids))
			}
			return nil
		},
	}
	preload.Flags().IntVar(&classLevel, "class", 0, "class level to preload")
	preload.Flags().StringVar(&chapters, "chapters", "", "comma-separated chapter ids (default: whole curriculum for the class)")
	preload.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return preload
}
