package main

import (
	"github.com/morpheu/heroku-buildpack-python/cmd"
)

func main() {
	cmd.Execute()
}
