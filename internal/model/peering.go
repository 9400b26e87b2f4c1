package model

import (
	"fmt"
	"strings"
)

// PeeringDocument is the signed self-description a node publishes to the network.
type PeeringDocument struct {
	Version   int      `json:"version"`
	Currency  string   `json:"currency"`
	Block     string   `json:"block"`
	Pubkey    string   `json:"pubkey"`
	Endpoints []string `json:"endpoints"`
	Signature string   `json:"signature,omitempty"`
}

// Raw returns the canonical text covered by the signature.
func (d PeeringDocument) Raw() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Version: %d\n", d.Version)
	b.WriteString("Type: Peer\n")
	fmt.Fprintf(&b, "Currency: %s\n", d.Currency)
	fmt.Fprintf(&b, "PublicKey: %s\n", d.Pubkey)
	fmt.Fprintf(&b, "Block: %s\n", d.Block)
	b.WriteString("Endpoints:\n")
	for _, ep := range d.Endpoints {
		b.WriteString(ep)
		b.WriteString("\n")
	}
	return b.String()
}
