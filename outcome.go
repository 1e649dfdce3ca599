package jwtcache

import (
	"encoding/json"

	"github.com/MrEthical07/jwtcache/jwt"
)

// entryOverhead approximates the fixed cost of one resident entry: the
// recency list node, the item header and the map slot.
const entryOverhead = 64

// Result is a successful (or, for callbacks, attempted) verification.
type Result struct {
	// Claims is the token payload. It may be any JSON value; object
	// payloads expose registered claims through jwt.Payload.
	Claims jwt.Payload
	// Token is the full envelope. Set only with Complete().
	Token *jwt.Decoded
}

// outcome is the cached value for one token. It is immutable once built and
// shared by every caller that hits it.
type outcome struct {
	err     error
	decoded *jwt.Decoded
	size    int64
}

// wireOutcome is the serialized form used to weigh an outcome.
type wireOutcome struct {
	Error   string       `json:"error,omitempty"`
	Decoded *jwt.Decoded `json:"decoded,omitempty"`
}

func newOutcome(err error, decoded *jwt.Decoded) *outcome {
	o := &outcome{err: err, decoded: decoded}
	o.size = o.serializedSize()
	return o
}

func (o *outcome) serializedSize() int64 {
	w := wireOutcome{Decoded: o.decoded}
	if o.err != nil {
		w.Error = o.err.Error()
	}
	data, err := json.Marshal(w)
	if err != nil {
		return int64(len(w.Error))
	}
	return int64(len(data))
}

// entryWeight is the store weigher: overhead + serialized outcome + key.
func entryWeight(key string, o *outcome) int64 {
	return entryOverhead + o.size + int64(len(key))
}

// result shapes the outcome for one caller. The error is returned as is.
func (o *outcome) result(complete bool) (*Result, error) {
	if o.decoded == nil {
		return nil, o.err
	}
	res := &Result{Claims: o.decoded.Claims}
	if complete {
		res.Token = o.decoded
	}
	return res, o.err
}
