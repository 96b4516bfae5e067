package events

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), "lead.accepted", "id-1", []byte(`{}`)))
	assert.NoError(t, p.Close())
}

func TestNewAMQPPublisher_BadURL(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	_, err := NewAMQPPublisher("not a broker url", "nexo.events", log)
	assert.Error(t, err)
}
