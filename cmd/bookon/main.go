package main

import (
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/bookon-app/bookon/internal/app"
	"github.com/bookon-app/bookon/internal/utils/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.New(slog.LevelInfo)
	slog.SetDefault(log)

	app.RunServer()
}
