package main

import (
	"fmt"
	"os"

	"github.com/metinatakli/payment-gateway/internal/app"
)

func main() {
	err := app.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "payment-gateway: %v\n", err)
		os.Exit(1)
	}
}
