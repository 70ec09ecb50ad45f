package main

import (
	"fmt"
	"log"
	"os"

	"retro/internal/config"
	"retro/internal/utils"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

const programName = "retro"

var (
	globalFlags = struct {
		debug   bool
		envFile string
	}{}

	cfg    config.Config
	logger *zap.Logger
)

// commonRun loads the environment and builds the logger shared by every command.
func commonRun() error {
	bootLogger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("failed to initialize zap logger: %w", err)
	}
	if globalFlags.envFile != "" {
		utils.LoadEnv(bootLogger, globalFlags.envFile)
	} else {
		utils.LoadEnv(bootLogger)
	}

	cfg = config.LoadConfig()
	if globalFlags.debug {
		cfg.LogLevel = "debug"
	}

	logger, err = utils.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}

	if _, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Infof)); err != nil {
		logger.Warn("Failed to set GOMAXPROCS", zap.Error(err))
	}

	logger.Info("Config loaded",
		zap.String("server_port", cfg.ServerPort),
		zap.String("db_driver", cfg.DBDriver),
		zap.String("encryption_mode", cfg.EncryptionMode),
		zap.Bool("redis_enabled", cfg.RedisURL != ""),
		zap.Bool("archive_enabled", cfg.MinioURL != ""),
		zap.String("env", cfg.Env),
	)
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Realtime retrospective board server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return commonRun()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
		RunE: serveRun,
	}

	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&globalFlags.envFile, "env-file", "", "path to a .env file (default .env)")

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(sweepCommand())

	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("Command failed", zap.Error(err))
			_ = logger.Sync()
		} else {
			log.Println(err)
		}
		os.Exit(1)
	}
}
