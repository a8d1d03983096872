// Package main is the shindan CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shindan/internal/config"
	"github.com/hyperjump/shindan/internal/pipeline"
	"github.com/hyperjump/shindan/internal/server"
	"github.com/hyperjump/shindan/internal/watcher"
	"github.com/hyperjump/shindan/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/shindan/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory wins (for development). When neither exists the
// built-in defaults apply, so a bare "shindan rank" works in a ward folder.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return config.Default(), "(defaults)", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "rank":
		runRank()
	case "review":
		runReview()
	case "server":
		runServer()
	case "version", "--version", "-v":
		fmt.Printf("shindan version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func setup(fs *flag.FlagSet) (*config.Config, *zap.Logger) {
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)
	return cfg, logger
}

func runRank() {
	fs := flag.NewFlagSet("rank", flag.ExitOnError)
	cfg, logger := setup(fs)
	defer logger.Sync()

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize pipeline", zap.Error(err))
	}
	defer p.Close()

	cwd, err := os.Getwd()
	if err != nil {
		logger.Fatal("Failed to resolve working directory", zap.Error(err))
	}
	res, err := p.Run(context.Background(), cwd)
	if err != nil {
		logger.Error("ranking failed", zap.Error(err))
		// Leave a readable trace where the report would have gone.
		_ = os.WriteFile(cfg.Storage.ResultTextPath, []byte("[FATAL] "+err.Error()+"\n"), 0644)
		os.Exit(1)
	}
	fmt.Print(res.Text)
	fmt.Printf("[SAVE] %s\n", cfg.Storage.ResultTextPath)
	fmt.Printf("[SAVE] %s\n", cfg.Storage.ResultJSONPath)
}

func runReview() {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	cfg, logger := setup(fs)
	defer logger.Sync()

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize pipeline", zap.Error(err))
	}
	defer p.Close()

	selection, err := io.ReadAll(os.Stdin)
	if err != nil {
		logger.Fatal("Failed to read selection from stdin", zap.Error(err))
	}
	final, err := p.Review(string(selection))
	if err != nil {
		logger.Fatal("review failed", zap.Error(err))
	}
	if final == "" {
		fmt.Println("OK (no selection)")
		return
	}
	fmt.Println("OK")
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	cfg, logger := setup(fs)
	defer logger.Sync()

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize pipeline", zap.Error(err))
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watch := watcher.NewWatcher(cfg.Storage.CataloguePath, p.Invalidate, logger)
	if err := watch.Start(ctx); err != nil {
		logger.Warn("catalogue watch unavailable", zap.Error(err))
	} else {
		defer watch.Stop()
	}

	srv := server.NewServer(p, &cfg.Server, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		logger.Fatal("server stopped", zap.Error(err))
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}
}

func printUsage() {
	fmt.Println(`shindan - 看護診断候補ランキングエンジン

Usage:
  shindan rank   [-config path] [-debug]   アセスメントを読み候補を順位付け
  shindan review [-config path] [-debug]   stdin の選択リストから確定版を保存
  shindan server [-config path] [-debug]   HTTP API サーバを起動
  shindan version                          バージョン表示
  shindan help                             このヘルプ

Input files (rank):
  assessment_final.txt  アセスメント本文（S/O だけでも可）
  s_input.txt / S.txt / s.txt   任意の S 情報
  o_input.txt / O.txt / o.txt   任意の O 情報`)
}
