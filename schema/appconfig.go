package schema

// remote config keys
const (
	ProjectNameKey            = "PROJECT_NAME"
	ProjectLogoKey            = "PROJECT_LOGO"
	TokenNameKey              = "TOKEN_NAME"
	TokenSymbolKey            = "TOKEN_SYMBOL"
	TokenAddressKey           = "TOKEN_ADDRESS"
	PaymentReceiverAddressKey = "PAYMENT_RECEIVER_ADDRESS"
)

// fallback defaults, used until the remote fetch resolves or when it fails
const (
	DefaultProjectName            = "NFT Market"
	DefaultProjectLogo            = "/logo.png"
	DefaultTokenName              = "Tether USD"
	DefaultTokenSymbol            = "USDT"
	DefaultTokenAddress           = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	DefaultPaymentReceiverAddress = "0x0000000000000000000000000000000000000000"
)

type ConfigRecord struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type AppConfig struct {
	ProjectName            string `json:"projectName"`
	ProjectLogo            string `json:"projectLogo"`
	TokenName              string `json:"tokenName"`
	TokenSymbol            string `json:"tokenSymbol"`
	TokenAddress           string `json:"tokenAddress"`
	PaymentReceiverAddress string `json:"paymentReceiverAddress"`
}

func DefaultAppConfig() AppConfig {
	return AppConfig{
		ProjectName:            DefaultProjectName,
		ProjectLogo:            DefaultProjectLogo,
		TokenName:              DefaultTokenName,
		TokenSymbol:            DefaultTokenSymbol,
		TokenAddress:           DefaultTokenAddress,
		PaymentReceiverAddress: DefaultPaymentReceiverAddress,
	}
}

// ApplyRecords maps recognized keys over c; unrecognized keys and empty values are ignored.
// Later records win over earlier ones with the same key.
func (c AppConfig) ApplyRecords(records []ConfigRecord) AppConfig {
	for _, r := range records {
		if r.Value == "" {
			continue
		}
		switch r.Key {
		case ProjectNameKey:
			c.ProjectName = r.Value
		case ProjectLogoKey:
			c.ProjectLogo = r.Value
		case TokenNameKey:
			c.TokenName = r.Value
		case TokenSymbolKey:
			c.TokenSymbol = r.Value
		case TokenAddressKey:
			c.TokenAddress = r.Value
		case PaymentReceiverAddressKey:
			c.PaymentReceiverAddress = r.Value
		}
	}
	return c
}
