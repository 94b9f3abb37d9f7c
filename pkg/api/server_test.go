package api

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modforge/assembly/pkg/config"
	"github.com/modforge/assembly/pkg/events"
	"github.com/modforge/assembly/pkg/orchestrator"
	"github.com/modforge/assembly/pkg/store"
)

func TestServer_ValidateWiring(t *testing.T) {
	t.Run("all collaborators wired", func(t *testing.T) {
		s := &Server{
			orchestrator: &orchestrator.Orchestrator{},
			events:       &events.Manager{},
			modStore:     &store.Store{},
			env:          &config.Env{},
		}
		assert.NoError(t, s.ValidateWiring())
	})

	t.Run("nothing wired", func(t *testing.T) {
		s := &Server{}
		err := s.ValidateWiring()
		require.Error(t, err)

		msg := err.Error()
		assert.Contains(t, msg, "server wiring incomplete")
		assert.Contains(t, msg, "orchestrator")
		assert.Contains(t, msg, "events manager")
		assert.Contains(t, msg, "mod store")
		assert.Contains(t, msg, "env")
		assert.Equal(t, 4, strings.Count(msg, "not set"))
	})

	t.Run("partial wiring reports only missing", func(t *testing.T) {
		s := &Server{
			orchestrator: &orchestrator.Orchestrator{},
			events:       &events.Manager{},
		}
		err := s.ValidateWiring()
		require.Error(t, err)

		msg := err.Error()
		assert.Contains(t, msg, "mod store")
		assert.Contains(t, msg, "env")
		assert.NotContains(t, msg, "orchestrator not set")
		assert.NotContains(t, msg, "events manager not set")
	})
}
