/*
Copyright © 2025 tieubaoca
*/
package main

import (
	"github.com/joho/godotenv"
	"github.com/tieubaoca/support-assistant/cmd"
)

func main() {
	// A .env file is optional; real environment variables take precedence.
	_ = godotenv.Load()
	cmd.Execute()
}
