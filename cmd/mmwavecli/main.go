package main

import (
	"github.com/robotalks/mmwave.go/pkg/cli/sh"
	"github.com/robotalks/mmwave.go/pkg/radar"
)

//go-build: CGO_ENABLED=0

func init() {
	radar.SetupFlags()
}

func main() {
	sh.Main()
}
