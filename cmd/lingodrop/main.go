package main

import (
	"os"

	"horse.fit/lingodrop/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
