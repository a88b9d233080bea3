package util

import (
	"os"
	"strings"

	"github.com/google/uuid"
)

// identityNamespace scopes identifiers derived by ClientIdentifier.
var identityNamespace = uuid.MustParse("6f1c2a8e-3b4d-5e6f-8a9b-0c1d2e3f4a5b")

// ClientIdentifier returns an upper-case UUID that is stable for this host,
// in the shape the mixer expects for "clientIdentifier".
func ClientIdentifier() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return IdentifierFor(host)
}

// IdentifierFor derives the identifier for an arbitrary seed.
func IdentifierFor(seed string) string {
	return strings.ToUpper(uuid.NewSHA1(identityNamespace, []byte(seed)).String())
}
