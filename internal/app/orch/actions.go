package orch

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Overlay/internal/domain"
)

// Actions post each user intent as its own reaction. None of them block on
// the transport, and a dropped command is only logged.

func (o *Orchestrator) post(cmd string, fn func() error) {
	ok := o.exec.Post(func() {
		if err := fn(); err != nil {
			log.Info().Str("module", "app.orch").Str("cmd", cmd).Err(err).Msg("command dropped")
		}
	})
	if !ok {
		log.Warn().Str("module", "app.orch").Str("cmd", cmd).Msg("executor stopped, command lost")
	}
}

func (o *Orchestrator) Connect(host string, port int, token string) {
	o.post("connect", func() error {
		if token == "" {
			token = o.Session.Token()
		}
		return o.Dispatch.Connect(host, port, token)
	})
}

func (o *Orchestrator) Disconnect() {
	o.post("disconnect", o.Dispatch.Disconnect)
}

func (o *Orchestrator) Reconnect() {
	o.post("reconnect", o.Dispatch.Reconnect)
}

func (o *Orchestrator) SendMessage(text string) {
	o.post("send_message", func() error { return o.Dispatch.SendMessage(text) })
}

func (o *Orchestrator) TeleportToPlayer(id domain.PlayerID) {
	o.post("teleport", func() error { return o.Dispatch.TeleportToPlayer(id) })
}

func (o *Orchestrator) Deactivate() {
	o.post("deactivate", func() error {
		o.Dispatch.Deactivate()
		o.Session.MarkInactive()
		return nil
	})
}
