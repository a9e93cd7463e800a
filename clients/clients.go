package clients

import (
	"lendwatch/clients/lendapi"
	"lendwatch/clients/livefeed"
	"lendwatch/config"

	"go.uber.org/zap"
)

type Clients struct {
	Logger *zap.Logger

	API  *lendapi.Client
	Live *livefeed.Client
}

func NewClients(logger *zap.Logger, cfg *config.Config) *Clients {
	return &Clients{
		Logger: logger,
		API:    lendapi.NewClient(logger, cfg),
		Live:   livefeed.NewClient(logger, cfg.Backend.WebSocketURL, cfg.Stream.PingInterval),
	}
}
