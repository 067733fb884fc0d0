package main

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStopSequenceRunsEveryStepInOrder(t *testing.T) {
	var ran []string
	step := func(name string, err error) stopStep {
		return stopStep{name, func() error {
			ran = append(ran, name)
			return err
		}}
	}

	stop := stopSequence(slog.New(slog.NewTextHandler(io.Discard, nil)),
		step("http server", nil),
		step("event publisher", errors.New("broker gone")),
		step("redis", nil),
		step("postgres", nil),
	)
	stop()

	assert.Equal(t, []string{"http server", "event publisher", "redis", "postgres"}, ran)
}
