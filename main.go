/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"github.com/spaghettifunk/tessera/engine"
	"github.com/spaghettifunk/tessera/engine/core"
	"github.com/spaghettifunk/tessera/testbed"
)

func main() {
	cfg, err := engine.LoadConfig(engine.DefaultConfigFile)
	if err != nil {
		core.LogFatal("failed to load configuration: %s", err.Error())
	}

	tb := testbed.NewTestGame(cfg)
	e, err := engine.New(tb.Game)
	if err != nil {
		core.LogFatal("failed to create engine: %s", err.Error())
	}
	tb.Bind(e)

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal("failed to initialize engine: %+v", err)
	}

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err.Error())
	}
	if runErr != nil {
		core.LogFatal("engine stopped: %+v", runErr)
	}
}
