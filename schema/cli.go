package schema

type Config struct {
	Port       string `yaml:"port"`
	MetricPort string `yaml:"metricPort"`
	ApiUrl     string `yaml:"apiUrl"`
	ApiTimeout int    `yaml:"apiTimeout"` // seconds
	RefParam   string `yaml:"refParam"`
	Workers    int    `yaml:"workers"`
	SentryDsn  string `yaml:"sentryDsn"`
	Env        string `yaml:"env"`
	LogLevel   string `yaml:"logLevel"` // debug, info, warn, error, crit

	Store     StoreKV   `yaml:"store"`
	RateLimit RateLimit `yaml:"rateLimit"`
}

type StoreKV struct {
	Type    string `yaml:"type"` // boltdb, memory, sqlite, mysql
	BoltDir string `yaml:"boltDir"`
	Dsn     string `yaml:"dsn"` // sqlite file path or mysql dsn
}

type RateLimit struct {
	Limit     int      `yaml:"limit"`
	Period    string   `yaml:"period"` // S, M, H, D
	Whitelist []string `yaml:"whitelist"`
}

const (
	DefaultPort       = ":8080"
	DefaultMetricPort = ":9000"
	DefaultApiTimeout = 15
	DefaultRefParam   = "ref"
	DefaultWorkers    = 4
	DefaultLogLevel   = "info"
)

// WithDefaults fills zero fields.
func (c Config) WithDefaults() Config {
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.MetricPort == "" {
		c.MetricPort = DefaultMetricPort
	}
	if c.ApiTimeout <= 0 {
		c.ApiTimeout = DefaultApiTimeout
	}
	if c.RefParam == "" {
		c.RefParam = DefaultRefParam
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Store.Type == "" {
		c.Store.Type = "boltdb"
	}
	if c.Store.BoltDir == "" {
		c.Store.BoltDir = "./data/bolt"
	}
	if c.RateLimit.Limit <= 0 {
		c.RateLimit.Limit = 300
	}
	if c.RateLimit.Period == "" {
		c.RateLimit.Period = "M"
	}
	return c
}
