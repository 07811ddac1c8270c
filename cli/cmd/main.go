package main

import (
	"log"
	"os"
	"pdfcrop/cli"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional for the command-line tool.
	_ = godotenv.Load()

	if err := cli.NewApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
