package main

import (
	"fmt"
	"strings"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/store"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/synchro"
)

// apiByIndex maps well known pod indices to the API serving them. Other indices use ES_CORE_API.
var apiByIndex = map[string]string{
	"user":         model.UserAPI,
	"page":         model.UserAPI,
	"group":        model.UserAPI,
	"message":      model.UserAPI,
	"invitation":   model.UserAPI,
	"subscription": model.SubscriptionAPI,
}

// parseCollection reads "index/type[:update][:nosig][:notime][:old][:api=NAME]".
func parseCollection(raw string) (synchro.ActionConfig, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	index, typ, ok := model.SplitCollectionKey(parts[0])
	if !ok {
		return synchro.ActionConfig{}, fmt.Errorf("collection %q: expected index/type", raw)
	}

	cfg := synchro.ActionConfig{
		Collection:                store.Collection{Index: index, Type: typ},
		API:                       model.ElasticsearchAPI,
		EnableSignatureValidation: true,
		EnableTimeValidation:      true,
	}
	if api, ok := apiByIndex[index]; ok {
		cfg.API = api
	}

	for _, opt := range parts[1:] {
		switch {
		case opt == "update":
			cfg.EnableUpdate = true
		case opt == "nosig":
			cfg.EnableSignatureValidation = false
		case opt == "notime":
			cfg.EnableTimeValidation = false
		case opt == "old":
			cfg.AllowOldDocuments = true
		case strings.HasPrefix(opt, "api="):
			cfg.API = strings.TrimPrefix(opt, "api=")
			if cfg.API == "" {
				return synchro.ActionConfig{}, fmt.Errorf("collection %q: empty api", raw)
			}
		default:
			return synchro.ActionConfig{}, fmt.Errorf("collection %q: unknown option %q", raw, opt)
		}
	}
	return cfg, nil
}

// actionConfigs parses every --collection and applies the node wide synchronization flags.
func actionConfigs(cfg config) ([]synchro.ActionConfig, error) {
	out := make([]synchro.ActionConfig, 0, len(cfg.Collections))
	for _, raw := range cfg.Collections {
		actionCfg, err := parseCollection(raw)
		if err != nil {
			return nil, err
		}
		actionCfg.ScrollBatchSize = cfg.ScrollSize
		actionCfg.MaxAge = cfg.MaxAge
		out = append(out, actionCfg)
	}
	return out, nil
}

// parseSeed reads "currency:ENDPOINT", e.g. "g1:BMAS g1.example.org 443".
func parseSeed(raw string) (model.Peer, error) {
	currency, endpoint, ok := strings.Cut(raw, ":")
	if !ok || currency == "" {
		return model.Peer{}, fmt.Errorf("seed %q: expected currency:endpoint", raw)
	}
	p, err := model.ParseEndpoint(currency, "", endpoint)
	if err != nil {
		return model.Peer{}, fmt.Errorf("seed %q: %w", raw, err)
	}
	p.Stats.Status = model.PeerUp
	return p, nil
}
