package schema

type RegisterReferralReq struct {
	Address string `json:"address"`
	RefCode string `json:"refCode"`
}

type RespReferral struct {
	RefCode string `json:"refCode"`
	State   string `json:"state"`
}

type RespDisplay struct {
	Value string `json:"value"`
}

type RespErr struct {
	Err string `json:"error"`
}

type RespWallet struct {
	Address string `json:"address"`
}

func (r RespErr) Error() string {
	return r.Err
}
