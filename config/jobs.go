package config

// runJobs bootstraps the config exactly once; there is no retry and no polling.
func (c *Config) runJobs() {
	if _, err := c.scheduler.Every(1).Second().LimitRunsTo(1).StartImmediately().Do(c.bootstrap); err != nil {
		log.Error("schedule config bootstrap failed", "err", err)
		return
	}

	c.scheduler.StartAsync()
}

func (c *Config) bootstrap() {
	if err := c.Refresh(); err != nil {
		log.Error("fetch app config failed, keep fallback values", "err", err)
	}
}
