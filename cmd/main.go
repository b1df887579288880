package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/everFinance/nftmarket"
	"github.com/everFinance/nftmarket/common"
	"github.com/everFinance/nftmarket/schema"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func main() {
	app := &cli.App{
		Name:  "nftmarket",
		Usage: "marketplace client core: remote config bootstrap and referral attribution",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "yaml config file, overrides the flags below", EnvVars: []string{"CONFIG"}},
			&cli.StringFlag{Name: "api_url", Value: "http://127.0.0.1:3000", Usage: "marketplace api url", EnvVars: []string{"API_URL"}},
			&cli.IntFlag{Name: "api_timeout", Value: schema.DefaultApiTimeout, Usage: "api request timeout in seconds", EnvVars: []string{"API_TIMEOUT"}},
			&cli.StringFlag{Name: "ref_param", Value: schema.DefaultRefParam, Usage: "referral query parameter", EnvVars: []string{"REF_PARAM"}},
			&cli.StringFlag{Name: "store", Value: "boltdb", Usage: "boltdb, memory, sqlite or mysql", EnvVars: []string{"STORE"}},
			&cli.StringFlag{Name: "db_dir", Value: "./data/bolt", Usage: "bolt db dir path", EnvVars: []string{"DB_DIR"}},
			&cli.StringFlag{Name: "dsn", Value: "./data/market.sqlite", Usage: "sqlite file or mysql dsn", EnvVars: []string{"DSN"}},
			&cli.IntFlag{Name: "workers", Value: schema.DefaultWorkers, Usage: "registration worker pool size", EnvVars: []string{"WORKERS"}},
			&cli.StringFlag{Name: "sentry_dsn", Usage: "sentry dsn, error logs are reported when set", EnvVars: []string{"SENTRY_DSN"}},
			&cli.StringFlag{Name: "env", Value: "dev", EnvVars: []string{"ENV"}},
			&cli.StringFlag{Name: "log_level", Value: schema.DefaultLogLevel, Usage: "debug, info, warn, error or crit", EnvVars: []string{"LOG_LEVEL"}},

			&cli.StringFlag{Name: "port", Value: schema.DefaultPort, EnvVars: []string{"PORT"}},
			&cli.StringFlag{Name: "metric_port", Value: schema.DefaultMetricPort, EnvVars: []string{"METRIC_PORT"}},
		},
		Action: run,
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg = cfg.WithDefaults()
	if err = common.SetLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	if err = common.InitSentry(cfg.SentryDsn, cfg.Env); err != nil {
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	m := nftmarket.New(cfg)
	m.Run()

	<-signals
	m.Close()
	return nil
}

func loadConfig(c *cli.Context) (schema.Config, error) {
	if path := c.String("config"); path != "" {
		cfg := schema.Config{}
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		err = yaml.Unmarshal(data, &cfg)
		return cfg, err
	}
	return schema.Config{
		Port:       c.String("port"),
		MetricPort: c.String("metric_port"),
		ApiUrl:     c.String("api_url"),
		ApiTimeout: c.Int("api_timeout"),
		RefParam:   c.String("ref_param"),
		Workers:    c.Int("workers"),
		SentryDsn:  c.String("sentry_dsn"),
		Env:        c.String("env"),
		LogLevel:   c.String("log_level"),
		Store: schema.StoreKV{
			Type:    c.String("store"),
			BoltDir: c.String("db_dir"),
			Dsn:     c.String("dsn"),
		},
	}, nil
}
