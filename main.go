// Package main is the entry point of the insight CLI.
package main

import (
	"github.com/huangsam/insight/cmd"
	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/internal/iocache"
)

func main() {
	cmd.SetCacheManager(iocache.Manager)

	err := cmd.Execute()
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	iocache.CloseCaching()
	if err != nil {
		contract.LogFatal("insight failed", err)
	}
	contract.SyncLogger()
}
