package natsio

import (
	"encoding/json"
	"strings"

	"github.com/nsyszr/msgbroker/pkg/model"
	"github.com/pkg/errors"
)

// DefaultBaseSubject prefixes the subject of every mirrored message.
const DefaultBaseSubject = "msgbroker.v1.messages"

// Publisher is the part of *nats.Conn the mirror needs.
type Publisher interface {
	Publish(subj string, data []byte) error
}

// Mirror publishes every broker message as JSON to
// <base subject>.<topic> on NATS.
type Mirror struct {
	pub         Publisher
	baseSubject string
}

func New(pub Publisher, baseSubject string) *Mirror {
	if baseSubject == "" {
		baseSubject = DefaultBaseSubject
	}
	return &Mirror{
		pub:         pub,
		baseSubject: baseSubject,
	}
}

func (m *Mirror) MirrorMessage(msg *model.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	subj := Subject(m.baseSubject, msg.Topic)
	if err := m.pub.Publish(subj, data); err != nil {
		return errors.Wrapf(err, "failed to publish to '%s'", subj)
	}
	return nil
}

// Subject maps a topic to a single NATS subject token. Separators,
// wildcards and whitespace are replaced by an underscore.
func Subject(baseSubject, topic string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, topic)
	if token == "" {
		token = "_"
	}
	return baseSubject + "." + token
}
