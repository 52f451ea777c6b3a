package main

import (
	"os"

	"horse.fit/finwire/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
