// Package hashid turns numeric row ids into opaque, reversible identifiers.
package hashid

import (
	"fmt"

	"github.com/speps/go-hashids/v2"
)

const minLength = 8

type Codec struct {
	h *hashids.HashID
}

// New builds a codec salted with the deployment secret.
func New(salt string) (*Codec, error) {
	data := hashids.NewData()
	data.Salt = salt
	data.MinLength = minLength
	h, err := hashids.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("init hashids: %w", err)
	}
	return &Codec{h: h}, nil
}

// Encode returns the opaque form of id.
func (c *Codec) Encode(id int64) string {
	out, err := c.h.EncodeInt64([]int64{id})
	if err != nil {
		return ""
	}
	return out
}

// Decode reverses Encode.
func (c *Codec) Decode(hashed string) (int64, error) {
	ids, err := c.h.DecodeInt64WithError(hashed)
	if err != nil {
		return 0, fmt.Errorf("decode hashid: %w", err)
	}
	if len(ids) != 1 {
		return 0, fmt.Errorf("decode hashid: expected one id, got %d", len(ids))
	}
	return ids[0], nil
}
