package main

import (
	"github.com/WSG23/optimal-build-sub005/internal/server"
	"github.com/WSG23/optimal-build-sub005/internal/util"
	"github.com/WSG23/optimal-build-sub005/pkg/logger"
	"github.com/WSG23/optimal-build-sub005/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	}))

	server.Init()
}
