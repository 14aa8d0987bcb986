package credentialservice

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
)

// expiresAt reads the provider's absolute expires_at field, falling back to the
// expiry oauth2 derived from expires_in.
func expiresAt(tok *oauth2.Token) int64 {
	if v, ok := numericExtra(tok, "expires_at"); ok {
		return v
	}
	if !tok.Expiry.IsZero() {
		return tok.Expiry.Unix()
	}
	return 0
}

func numericExtra(tok *oauth2.Token, key string) (int64, bool) {
	switch v := tok.Extra(key).(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// athleteIdentity extracts {id, "firstname lastname"} from the token response.
func athleteIdentity(tok *oauth2.Token) (int64, string, error) {
	raw, ok := tok.Extra("athlete").(map[string]any)
	if !ok {
		return 0, "", ErrMissingAthlete
	}

	var id int64
	switch v := raw["id"].(type) {
	case float64:
		id = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, "", fmt.Errorf("%w: bad id %q", ErrMissingAthlete, v)
		}
		id = n
	}
	if id == 0 {
		return 0, "", fmt.Errorf("%w: no id", ErrMissingAthlete)
	}

	first, _ := raw["firstname"].(string)
	last, _ := raw["lastname"].(string)
	return id, strings.TrimSpace(first + " " + last), nil
}
