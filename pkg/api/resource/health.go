package resource

import "github.com/nsyszr/msgbroker/pkg/broker"

const (
	HealthStatusUp   = "up"
	HealthStatusDown = "down"
)

type HealthResource struct {
	Status    string `json:"status"`
	Sessions  int    `json:"sessions"`
	Topics    int    `json:"topics"`
	Messages  int    `json:"messages"`
	Scheduled int    `json:"scheduled"`
}

func NewHealth(status string, st *broker.Stats) (out *HealthResource) {
	out = &HealthResource{
		Status: status,
	}
	if st == nil {
		return // out
	}

	out.Sessions = st.Sessions
	out.Topics = st.Topics
	out.Messages = st.Messages
	out.Scheduled = st.Scheduled
	return // out
}
