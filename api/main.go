package main

import (
	"github.com/joho/godotenv"

	"github.com/helixml/droidbridge/api/cmd/droidbridge"
)

func main() {
	_ = godotenv.Load()
	droidbridge.Execute()
}
