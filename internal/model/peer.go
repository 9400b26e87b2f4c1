package model

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// PeerStatus describes the reachability of a peer.
type PeerStatus string

var (
	// PeerUp marks a peer answering requests.
	PeerUp PeerStatus = "UP"
	// PeerDown marks a peer that failed its last contact.
	PeerDown PeerStatus = "DOWN"
)

// Known peer APIs.
const (
	BasicMerkledAPI  = "BASIC_MERKLED_API"
	ElasticsearchAPI = "ES_CORE_API"
	UserAPI          = "ES_USER_API"
	SubscriptionAPI  = "ES_SUBSCRIPTION_API"
)

// PeerStats holds the last observed state of a peer.
type PeerStats struct {
	Status      PeerStatus `json:"status"`
	BlockNumber uint64     `json:"blockNumber"`
	BlockHash   string     `json:"blockHash,omitempty"`
	LastUpTime  int64      `json:"lastUpTime,omitempty"`
}

// Peer is a remote node serving one API for a currency.
type Peer struct {
	ID       string    `json:"id"`
	Currency string    `json:"currency"`
	API      string    `json:"api"`
	Host     string    `json:"host"`
	Port     int       `json:"port"`
	Path     string    `json:"path,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	Pubkey   string    `json:"pubkey,omitempty"`
	Stats    PeerStats `json:"stats"`
}

// ComputeID derives a stable identifier from the peer endpoint.
func (p Peer) ComputeID() string {
	return strings.ToLower(fmt.Sprintf("%s|%s|%s|%d|%s", p.Currency, p.API, p.Host, p.Port, strings.Trim(p.Path, "/")))
}

// WithID returns a copy of p with ID filled when empty.
func (p Peer) WithID() Peer {
	if p.ID == "" {
		p.ID = p.ComputeID()
	}
	return p
}

// BaseURL returns the http(s) root of the peer.
func (p Peer) BaseURL() string {
	scheme := "http"
	if p.Secure || p.Port == 443 {
		scheme = "https"
	}
	u := scheme + "://" + net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	if path := strings.Trim(p.Path, "/"); path != "" {
		u += "/" + path
	}
	return u
}

// WebsocketURL returns the ws(s) root of the peer.
func (p Peer) WebsocketURL() string {
	base := p.BaseURL()
	if strings.HasPrefix(base, "https://") {
		return "wss://" + strings.TrimPrefix(base, "https://")
	}
	return "ws://" + strings.TrimPrefix(base, "http://")
}

// IsUp reports whether the peer answered its last contact.
func (p Peer) IsUp() bool {
	return p.Stats.Status == PeerUp
}

// MarkUp records a successful contact at the given head.
func (p *Peer) MarkUp(head Block, now time.Time) {
	p.Stats.Status = PeerUp
	p.Stats.BlockNumber = head.Number
	p.Stats.BlockHash = head.Hash
	p.Stats.LastUpTime = now.Unix()
}

// MarkDown records a failed contact.
func (p *Peer) MarkDown() {
	p.Stats.Status = PeerDown
}

func (p Peer) String() string {
	return fmt.Sprintf("[%s] %s", p.API, p.BaseURL())
}

// ParseEndpoint parses a peering endpoint such as "BASIC_MERKLED_API g1.example.org 443 /bma".
// A trailing "S" on the BMAS shorthand marks a TLS endpoint.
func ParseEndpoint(currency, pubkey, endpoint string) (Peer, error) {
	fields := strings.Fields(endpoint)
	if len(fields) < 3 {
		return Peer{}, fmt.Errorf("endpoint %q: expected api, host and port", endpoint)
	}

	p := Peer{Currency: currency, Pubkey: pubkey, API: fields[0]}
	switch p.API {
	case "BMAS":
		p.API, p.Secure = BasicMerkledAPI, true
	case "BMA":
		p.API = BasicMerkledAPI
	}

	portIdx := -1
	for i := len(fields) - 1; i > 0; i-- {
		if port, err := strconv.Atoi(fields[i]); err == nil && port > 0 && port < 65536 {
			p.Port, portIdx = port, i
			break
		}
	}
	if portIdx < 2 {
		return Peer{}, fmt.Errorf("endpoint %q: missing host or port", endpoint)
	}
	p.Host = fields[1]
	if portIdx+1 < len(fields) {
		p.Path = fields[portIdx+1]
	}
	if p.Port == 443 {
		p.Secure = true
	}
	return p.WithID(), nil
}

// Endpoint formats p the way ParseEndpoint reads it.
func (p Peer) Endpoint() string {
	ep := fmt.Sprintf("%s %s %d", p.API, p.Host, p.Port)
	if path := strings.Trim(p.Path, "/"); path != "" {
		ep += " /" + path
	}
	return ep
}
