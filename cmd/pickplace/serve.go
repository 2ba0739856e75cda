package main

import (
	"net/http"

	"github.com/edaniels/golog"

	"github.com/gwillem/pickplace/pkg/simulator"
)

type ServeCommand struct {
	Listen string `short:"l" long:"listen" default:":8000" description:"Address to listen on"`
}

func (c *ServeCommand) Execute(args []string) error {
	logger := golog.NewDevelopmentLogger("simulator")
	srv := simulator.NewServer(simulator.WithLogger(logger))

	logger.Infow("robot-control service listening", "addr", c.Listen)
	return http.ListenAndServe(c.Listen, srv)
}
