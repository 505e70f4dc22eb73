package main

import (
	"github.com/humanbelnik/scribble-relay/internal/app"
	"github.com/humanbelnik/scribble-relay/internal/config"
)

func main() {
	app.Go(config.Load())
}
