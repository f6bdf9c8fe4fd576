package main

import (
	"os"

	"predictd/internal/ctl"
)

func main() { os.Exit(ctl.Main()) }
