package nftmarket

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	mcommon "github.com/everFinance/nftmarket/common"
	"github.com/everFinance/nftmarket/schema"
	"github.com/gin-gonic/gin"
)

func (m *NftMarket) registerRoutes() {
	r := m.engine
	r.Use(mcommon.CORSMiddleware())
	r.Use(mcommon.LimiterMiddleware(m.cfg.RateLimit.Limit, m.cfg.RateLimit.Period, m.cfg.RateLimit.Whitelist))
	r.Use(RefCaptureMiddleware(m.pipeline))

	v1 := r.Group("/")
	{
		v1.GET("/info", m.getInfo)
		v1.GET("/wallet", m.getWallet)
		v1.POST("/wallet/connect/:address", m.connectWallet)
		v1.POST("/wallet/disconnect", m.disconnectWallet)
		v1.GET("/referral", m.getReferral)
		v1.GET("/display/:value", m.getDisplay)
	}
}

func (m *NftMarket) runAPI(srv *http.Server) {
	log.Info("Starting api server", "listen", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("api server stopped", "err", err)
	}
}

func (m *NftMarket) getInfo(c *gin.Context) {
	c.JSON(http.StatusOK, m.config.Current())
}

func (m *NftMarket) getWallet(c *gin.Context) {
	c.JSON(http.StatusOK, schema.RespWallet{Address: m.wallet.Address()})
}

func (m *NftMarket) connectWallet(c *gin.Context) {
	addr := strings.TrimSpace(c.Param("address"))
	if addr == "" {
		errorResponse(c, schema.ErrNullAddress.Error())
		return
	}
	if !common.IsHexAddress(addr) {
		errorResponse(c, schema.ErrInvalidAddress.Error())
		return
	}
	m.wallet.Connect(addr)
	c.JSON(http.StatusOK, schema.RespWallet{Address: addr})
}

func (m *NftMarket) disconnectWallet(c *gin.Context) {
	m.wallet.Disconnect()
	c.JSON(http.StatusOK, schema.RespWallet{})
}

func (m *NftMarket) getReferral(c *gin.Context) {
	code, err := m.store.Read()
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, schema.RespReferral{
		RefCode: code,
		State:   string(m.pipeline.State()),
	})
}

func (m *NftMarket) getDisplay(c *gin.Context) {
	c.JSON(http.StatusOK, schema.RespDisplay{Value: mcommon.FormatDisplay(c.Param("value"))})
}

func errorResponse(c *gin.Context, err string) {
	// client error
	c.JSON(http.StatusBadRequest, schema.RespErr{
		Err: err,
	})
}

func internalErrorResponse(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, schema.RespErr{
		Err: err,
	})
}
