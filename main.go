package main

import (
	"os"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/course-catalog/app"
)

func main() {
	// setup and run app
	if err := app.SetupAndRunServer(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
