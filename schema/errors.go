package schema

import (
	"errors"
)

var (
	ErrNotExist     = errors.New("not_exist_record")
	ErrUnknownStore = errors.New("unknown_store_type")

	ErrFetchConfig      = errors.New("fetch_config_from_api")
	ErrRegisterReferral = errors.New("register_referral_failed")
	ErrNullAddress      = errors.New("null_address")
	ErrInvalidAddress   = errors.New("invalid_address")
	ErrPipelineClosed   = errors.New("referral_pipeline_closed")
	ErrEventQueueFull   = errors.New("referral_event_queue_full")
)
