package nftmarket

import (
	"context"
	"net/http"
	"time"

	"github.com/everFinance/nftmarket/common"
	"github.com/everFinance/nftmarket/config"
	"github.com/everFinance/nftmarket/rawdb"
	"github.com/everFinance/nftmarket/referral"
	"github.com/everFinance/nftmarket/schema"
	"github.com/everFinance/nftmarket/sdk"
	"github.com/everFinance/nftmarket/wallet"
	"github.com/gin-gonic/gin"
)

var log = common.NewLog("nftmarket")

type NftMarket struct {
	cfg schema.Config

	kvDb     rawdb.KeyValueDB
	apiCli   *sdk.Client
	config   *config.Config
	wallet   *wallet.Session
	store    *referral.Store
	pipeline *referral.Pipeline

	engine      *gin.Engine
	server      *http.Server
	metricSrv   *http.Server
	unsubWallet func()
}

func New(cfg schema.Config) *NftMarket {
	cfg = cfg.WithDefaults()

	kvDb, err := NewKVDb(cfg.Store)
	if err != nil {
		panic(err)
	}

	apiCli := sdk.New(cfg.ApiUrl, time.Duration(cfg.ApiTimeout)*time.Second)
	store := referral.NewStore(kvDb)
	pipeline, err := referral.NewPipeline(store, apiCli,
		referral.WithRefParam(cfg.RefParam),
		referral.WithWorkers(cfg.Workers),
	)
	if err != nil {
		panic(err)
	}

	m := &NftMarket{
		cfg:      cfg,
		kvDb:     kvDb,
		apiCli:   apiCli,
		config:   config.New(apiCli),
		wallet:   wallet.NewSession(),
		store:    store,
		pipeline: pipeline,
		engine:   gin.Default(),
	}
	m.unsubWallet = m.wallet.Subscribe(m.pipeline.ObserveAddress)
	m.registerRoutes()
	return m
}

// NewKVDb opens the backend holding the pending referral code.
func NewKVDb(cfg schema.StoreKV) (rawdb.KeyValueDB, error) {
	switch cfg.Type {
	case rawdb.BoltType:
		return rawdb.NewBoltDB(cfg.BoltDir)
	case rawdb.MemoryType:
		return rawdb.NewMemDB()
	case rawdb.SqliteType:
		return rawdb.NewSqliteDB(cfg.Dsn)
	case rawdb.MysqlType:
		return rawdb.NewMysqlDB(cfg.Dsn)
	}
	return nil, schema.ErrUnknownStore
}

func (m *NftMarket) Config() *config.Config {
	return m.config
}

func (m *NftMarket) Wallet() *wallet.Session {
	return m.wallet
}

func (m *NftMarket) Run() {
	m.pipeline.Start()
	m.config.Run()
	m.metricSrv = common.NewMetricServer(m.cfg.MetricPort)
	m.server = &http.Server{Addr: m.cfg.Port, Handler: m.engine}
	go m.runAPI(m.server)
}

func (m *NftMarket) Close() {
	if m.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := m.server.Shutdown(ctx); err != nil {
			log.Warn("shutdown api server", "err", err)
		}
		cancel()
	}
	if m.metricSrv != nil {
		m.metricSrv.Close()
	}
	m.unsubWallet()
	m.config.Close()
	m.pipeline.Close()
	if err := m.kvDb.Close(); err != nil {
		log.Error("close kv db failed", "err", err)
	}
}
