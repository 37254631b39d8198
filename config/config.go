package config

import (
	"sync"
	"time"

	"github.com/EnzoRoselli/InheritChain/common"
	"github.com/EnzoRoselli/InheritChain/config/schema"
	"github.com/go-co-op/gocron"
)

var log = common.NewLog("config")

type Config struct {
	mu          sync.RWMutex
	wdb         *Wdb
	param       schema.Param
	ipWhiteList map[string]struct{}
	scheduler   *gocron.Scheduler
}

func New(configDSN string, sqliteDir string, useSqlite bool) *Config {
	if useSqlite {
		return newConfig(NewSqliteDb(sqliteDir))
	}
	return newConfig(NewWdb(configDSN))
}

func newConfig(wdb *Wdb) *Config {
	err := wdb.Migrate()
	if err != nil {
		panic(err)
	}
	param, err := wdb.GetParam()
	if err != nil {
		panic(err)
	}
	return &Config{
		wdb:         wdb,
		param:       param,
		ipWhiteList: make(map[string]struct{}),
		scheduler:   gocron.NewScheduler(time.UTC),
	}
}

func (c *Config) Param() schema.Param {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.param
}

// PollFloor and PollCeiling bound the liveness poll cadence.
func (c *Config) PollFloor() time.Duration {
	return time.Duration(c.Param().PollFloorSeconds) * time.Second
}

func (c *Config) PollCeiling() time.Duration {
	return time.Duration(c.Param().PollCeilingSeconds) * time.Second
}

// SurfacedRejectedCount caps how much rejected history read APIs return.
func (c *Config) SurfacedRejectedCount() int {
	n := c.Param().SurfacedRejectedCount
	if n <= 0 {
		n = 5
	}
	return n
}

func (c *Config) PinGateway() string {
	return c.Param().PinGateway
}

func (c *Config) IPWhiteList() *map[string]struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	wl := c.ipWhiteList
	return &wl
}

func (c *Config) Run() {
	c.runJobs()
}

func (c *Config) Close() {
	c.scheduler.Stop()
	c.wdb.Close()
}
