package sdk

import (
	"fmt"
	"time"

	"github.com/everFinance/nftmarket/schema"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/timeout"
)

const (
	configPath   = "/config"
	registerPath = "/referral/register"
)

// Client talks to the marketplace REST api.
type Client struct {
	SCli *gentleman.Client
}

func New(apiUrl string, reqTimeout time.Duration) *Client {
	cli := gentleman.New().URL(apiUrl)
	if reqTimeout > 0 {
		cli.Use(timeout.Request(reqTimeout))
	}
	return &Client{SCli: cli}
}

// GetConfigs fetches the key/value config records. Caches along the way are bypassed,
// config is changed operationally without a redeploy.
func (c *Client) GetConfigs() ([]schema.ConfigRecord, error) {
	req := c.SCli.Get()
	req.Path(configPath)
	req.SetHeader("Cache-Control", "no-cache, no-store, must-revalidate")
	req.SetHeader("Pragma", "no-cache")
	req.SetHeader("X-Request-Id", uuid.NewString())
	resp, err := req.Send()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrFetchConfig, err)
	}
	defer resp.Close()
	if !resp.Ok {
		return nil, fmt.Errorf("%w: http code: %d, errMsg: %s", schema.ErrFetchConfig, resp.StatusCode, resp.String())
	}
	return parseConfigRecords(resp.Bytes())
}

// parseConfigRecords accepts a bare array or a {"data": [...]} envelope.
func parseConfigRecords(body []byte) ([]schema.ConfigRecord, error) {
	res := gjson.ParseBytes(body)
	if !res.IsArray() {
		res = res.Get("data")
	}
	if !res.IsArray() {
		return nil, fmt.Errorf("%w: unexpected body: %s", schema.ErrFetchConfig, string(body))
	}
	records := make([]schema.ConfigRecord, 0)
	res.ForEach(func(_, v gjson.Result) bool {
		key := v.Get("key")
		if !key.Exists() {
			return true
		}
		records = append(records, schema.ConfigRecord{
			Key:   key.String(),
			Value: v.Get("value").String(),
		})
		return true
	})
	return records, nil
}

// RegisterReferral attributes address to refCode. A 4xx/5xx answer is a failure.
func (c *Client) RegisterReferral(address, refCode string) error {
	req := c.SCli.Post()
	req.Path(registerPath)
	req.SetHeader("X-Request-Id", uuid.NewString())
	req.JSON(schema.RegisterReferralReq{
		Address: address,
		RefCode: refCode,
	})
	resp, err := req.Send()
	if err != nil {
		return fmt.Errorf("%w: %v", schema.ErrRegisterReferral, err)
	}
	defer resp.Close()
	if !resp.Ok {
		return fmt.Errorf("%w: http code: %d, errMsg: %s", schema.ErrRegisterReferral, resp.StatusCode, resp.String())
	}
	return nil
}
