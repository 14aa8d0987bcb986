package eventbus

import (
	"errors"
	"fmt"
	"strings"

	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"
)

var errNotUserSeed = errors.New("nkey seed is not a user seed")

// nkeyOption authenticates the connection with a user NKey seed. The server
// challenges with a nonce that the key pair signs.
func nkeyOption(seed string) (nc.Option, error) {
	kp, err := nkeys.FromSeed([]byte(strings.TrimSpace(seed)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse nkey seed: %w", err)
	}
	publicKey, err := kp.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get nkey public key: %w", err)
	}
	if !nkeys.IsValidPublicUserKey(publicKey) {
		return nil, errNotUserSeed
	}
	return nc.Nkey(publicKey, kp.Sign), nil
}
