package nodeconfig

import (
	"fmt"

	"github.com/spf13/cast"
	"github.com/veritrust-dev/veritrust-node/cmd/veritrust-node/config"
)

const (
	subsection = "node"

	// ListenAddressDefault is the default address the QUIC listener
	// binds to.
	ListenAddressDefault = ":9750"

	// StoragePathDefault is the default path of the opinion database.
	StoragePathDefault = "./data/opinions.db"
)

// ListenAddress returns the value of "listen_address" config parameter
// from "node" section.
//
// Returns ListenAddressDefault if the value is not set.
func ListenAddress(c *config.Config) string {
	v := config.StringSafe(c.Sub(subsection), "listen_address")
	if v == "" {
		return ListenAddressDefault
	}

	return v
}

// StoragePath returns the value of "storage_path" config parameter
// from "node" section.
//
// Returns StoragePathDefault if the value is not set.
func StoragePath(c *config.Config) string {
	v := config.StringSafe(c.Sub(subsection), "storage_path")
	if v == "" {
		return StoragePathDefault
	}

	return v
}

// Key returns the value of "key" config parameter from "node" section:
// the path of the node's ed25519 private key file.
//
// Returns an empty string if the value is not set, in which case the
// node runs with an ephemeral identity.
func Key(c *config.Config) string {
	return config.StringSafe(c.Sub(subsection), "key")
}

// Peer is an entry of the top-level "peers" list.
type Peer struct {
	ID      string
	Address string
}

// Peers returns the contents of top-level "peers" section as a list of
// base58 peer identifiers with network addresses.
//
// Identifiers are list element fields rather than map keys: map key
// lookup is case-insensitive and would mangle base58.
//
// Panics if an entry is malformed.
func Peers(c *config.Config) []Peer {
	v := c.Value("peers")
	if v == nil {
		return nil
	}

	raw, err := cast.ToSliceE(v)
	if err != nil {
		panic(fmt.Errorf("invalid peers section: %w", err))
	}

	res := make([]Peer, 0, len(raw))

	for i := range raw {
		m, err := cast.ToStringMapE(raw[i])
		if err != nil {
			panic(fmt.Errorf("invalid peer entry #%d: %w", i, err))
		}

		id, err := cast.ToStringE(m["id"])
		if err != nil || id == "" {
			panic(fmt.Errorf("invalid identifier of peer entry #%d", i))
		}

		addr, err := cast.ToStringE(m["address"])
		if err != nil || addr == "" {
			panic(fmt.Errorf("invalid address of peer %s", id))
		}

		res = append(res, Peer{
			ID:      id,
			Address: addr,
		})
	}

	return res
}
