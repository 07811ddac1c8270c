package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"pdfcrop/app/server"
	"pdfcrop/filestore"
	"pdfcrop/store"
	"pdfcrop/types"
	"syscall"

	"github.com/joho/godotenv"
)

func init() {
	loadEnvVariables()
}

func main() {
	cfg := types.LoadConfig()

	files, err := filestore.New(cfg.UploadDir, cfg.OutputDir)
	if err != nil {
		log.Fatal("error to create upload folders: ", err)
	}

	presets, err := store.Open(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}

	s := server.NewServer(cfg, presets, files)

	go func() {
		if err := s.Run(); err != nil {
			log.Fatal(err)
		}
	}()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	log.Println("Received shutdown signal, shutting down server...")
	s.Stop()
}

// loadEnvVariables reads .env when present; the process environment still
// applies without it.
func loadEnvVariables() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatal("Error loading .env file: ", err)
	}
}
