package main

import (
	"token-band-alerts/internal/cli"
)

func main() {
	cli.Execute()
}
