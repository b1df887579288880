package config

import (
	"sync"
	"time"

	"github.com/everFinance/nftmarket/common"
	"github.com/everFinance/nftmarket/schema"
	"github.com/go-co-op/gocron"
)

var log = common.NewLog("config")

type Fetcher interface {
	GetConfigs() ([]schema.ConfigRecord, error)
}

type subscriber struct {
	id int
	fn func(schema.AppConfig)
}

// Config holds the remote app config. It starts with the fallback defaults
// and is replaced as a whole on every successful fetch.
type Config struct {
	fetcher   Fetcher
	scheduler *gocron.Scheduler
	runOnce   sync.Once

	lock    sync.RWMutex
	current schema.AppConfig

	// pubLock orders deliveries so a subscriber never sees an older value after a newer one
	pubLock sync.Mutex
	subs    []subscriber
	nextId  int
}

func New(fetcher Fetcher) *Config {
	return &Config{
		fetcher:   fetcher,
		scheduler: gocron.NewScheduler(time.UTC),
		current:   schema.DefaultAppConfig(),
	}
}

func (c *Config) Current() schema.AppConfig {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.current
}

// Subscribe calls fn with the current value before returning and again after every update.
// fn must not call Subscribe or the returned unsubscribe func.
func (c *Config) Subscribe(fn func(schema.AppConfig)) (unsubscribe func()) {
	c.pubLock.Lock()
	defer c.pubLock.Unlock()

	id := c.nextId
	c.nextId++
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	fn(c.Current())

	return func() {
		c.pubLock.Lock()
		defer c.pubLock.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// Refresh fetches the records once and publishes the result. On failure the
// last known values are kept.
func (c *Config) Refresh() error {
	records, err := c.fetcher.GetConfigs()
	if err != nil {
		return err
	}

	c.pubLock.Lock()
	defer c.pubLock.Unlock()

	c.lock.Lock()
	c.current = schema.DefaultAppConfig().ApplyRecords(records)
	cfg := c.current
	c.lock.Unlock()

	for _, s := range c.subs {
		s.fn(cfg)
	}
	log.Info("app config updated", "records", len(records), "projectName", cfg.ProjectName, "tokenSymbol", cfg.TokenSymbol)
	return nil
}

func (c *Config) Run() {
	c.runOnce.Do(c.runJobs)
}

func (c *Config) Close() {
	c.scheduler.Stop()
}
