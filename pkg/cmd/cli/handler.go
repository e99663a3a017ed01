package cli

import "github.com/nsyszr/msgbroker/config"

type Handler struct {
	Migration *MigrateHandler
}

func NewHandler(c *config.Config) *Handler {
	return &Handler{
		Migration: newMigrateHandler(c),
	}
}
