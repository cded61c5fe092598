package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dispatch-console/internal/config"
	"dispatch-console/internal/console"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("[MAIN] No .env file found, relying on system env vars")
	}

	var configPath, logLevel string
	flagSet := pflag.NewFlagSet("dashctl", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "YAML file overlaid on environment settings")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default from LOG_LEVEL)")
	flagSet.BoolP("help", "h", false, "show help")
	flagSet.SetInterspersed(false)

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	args := flagSet.Args()
	if help, _ := flagSet.GetBool("help"); help || len(args) == 0 {
		printHelp(flagSet)
		return nil
	}

	cfg := config.Load()
	if configPath != "" {
		if err := config.LoadFile(&cfg, configPath); err != nil {
			return err
		}
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := console.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	return cmd.run(ctx, c, args[1:])
}

// newLogger writes logs to stderr so stdout stays clean for output. Debug
// runs get zap's development console format, everything else JSON.
func newLogger(level string) (*zap.Logger, error) {
	return loggerConfig(level).Build()
}

func loggerConfig(level string) zap.Config {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.WarnLevel
	}
	zcfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "dashctl: operate the dispatch admin backend from a terminal.\n\n")
	fmt.Fprintf(os.Stderr, "Usage: dashctl [flags] <command> [command flags]\n\nCommands:\n")
	for _, name := range commandOrder {
		fmt.Fprintf(os.Stderr, "  %-12s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(os.Stderr, "\nFlags:\n%s", flagSet.FlagUsages())
}
