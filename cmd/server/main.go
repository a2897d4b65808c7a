package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	taskapp "github.com/Buanaoda/task-app"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	cfg := taskapp.NewConfigFromEnv()
	if cfg.SigningKey == "" {
		log.Fatal("JWT_SECRET is required")
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		log.Fatal(err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	ctx := context.Background()
	if err := taskapp.RunMigrations(ctx, db); err != nil {
		log.Fatal(err)
	}

	repos := taskapp.NewRepositoryManager(db)

	var mailer taskapp.Mailer = taskapp.NoopMailer{}
	if cfg.SendGridAPIKey != "" {
		mailer = taskapp.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFromAddress, cfg.MailFromName)
	}

	accounts := taskapp.NewAccounts(repos.Users(), cfg).
		WithTasks(repos.Tasks()).
		WithMailer(mailer)

	controller := taskapp.NewController(accounts, repos.Tasks())

	app := fiber.New(fiber.Config{
		AppName: "task-app",
	})

	controller.RegisterRoutes(app)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		if err := app.Shutdown(); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
