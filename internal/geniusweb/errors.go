package geniusweb

import "errors"

var (
	ErrNotWrapped         = errors.New("json is not a single-key wrapper object")
	ErrUnknownAction      = errors.New("unknown action type")
	ErrUnknownInform      = errors.New("unknown inform type")
	ErrUnsupportedProfile = errors.New("unsupported profile type")
	ErrInvalidValue       = errors.New("value must be a json string or number")
	ErrInvalidValueSet    = errors.New("value set must have values or range")
	ErrInvalidRange       = errors.New("number range must have positive step and low <= high")
)

var (
	ErrBidNotFitting     = errors.New("bid does not fit domain")
	ErrUnsupportedScheme = errors.New("unsupported profile uri scheme")
	ErrNotConnected      = errors.New("party is not connected")
	ErrEmptyBidSpace     = errors.New("bid space is empty")
)
