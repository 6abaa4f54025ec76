package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/steams-social/steams-api/config"
	"github.com/steams-social/steams-api/database"
	"github.com/steams-social/steams-api/logger"
	"github.com/steams-social/steams-api/web"
	"github.com/steams-social/steams-api/web/service"
)

func initLogger() {
	level, err := logger.ParseLevel(config.GetLogLevel())
	if err != nil {
		log.Fatal(err)
	}
	logger.InitLogger(level)
}

func initDB() error {
	return database.InitDB(config.GetStore())
}

func runWebServer() {
	log.Printf("%v %v", config.GetName(), config.GetVersion())
	initLogger()
	defer logger.CloseLogger()
	if err := initDB(); err != nil {
		logger.Error("init database failed:", err)
		return
	}

	server := web.NewServer()
	if err := server.Start(); err != nil {
		log.Println(err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	// Trap shutdown signals
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGINT)
	for {
		sig := <-sigCh

		switch sig {
		case syscall.SIGHUP:
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			server = web.NewServer()
			if err := server.Start(); err != nil {
				log.Println(err)
				return
			}
		default:
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			_ = database.CloseDB()
			return
		}
	}
}

func migrateDb() error {
	if err := initDB(); err != nil {
		return err
	}
	defer database.CloseDB()
	fmt.Println("Database schema is up to date")
	return nil
}

// grantAdmin promotes an existing user without going through the API, so
// that a fresh deployment can get its first admin.
func grantAdmin(email string) error {
	if err := initDB(); err != nil {
		return err
	}
	defer database.CloseDB()

	users := service.NewUserService(database.GetDB())
	user, err := users.Promote(context.Background(), email)
	if err != nil {
		return fmt.Errorf("grant admin failed: %w", err)
	}
	fmt.Printf("%s is now an admin\n", user.Email)
	return nil
}

func main() {
	config.LoadEnv()

	var rootCmd = &cobra.Command{
		Use:           config.GetName(),
		Short:         "Complaint and profile API for steams.social",
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer()
		},
	}

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the web server",
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer()
		},
	}

	var migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrateDb()
		},
	}

	var adminCmd = &cobra.Command{
		Use:   "admin",
		Short: "Manage administrators",
	}

	var grantCmd = &cobra.Command{
		Use:   "grant <email>",
		Short: "Promote an existing user to admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return grantAdmin(args[0])
		},
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(config.GetVersion())
		},
	}

	adminCmd.AddCommand(grantCmd)
	rootCmd.AddCommand(runCmd, migrateCmd, adminCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
