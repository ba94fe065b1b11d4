package main

import (
	"testing"

	"github.com/alejandrodnm/prophet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTransports(t *testing.T) {
	ts, err := buildTransports([]string{"allorigins", "direct"})
	require.NoError(t, err)
	require.Len(t, ts, 2)
	assert.Equal(t, "allorigins", ts[0].Name)
	assert.Equal(t, "https://x.test/a", ts[1].Rewrite("https://x.test/a"))

	_, err = buildTransports([]string{"direct", "tor"})
	assert.ErrorContains(t, err, "tor")
}

func TestParseMarketID(t *testing.T) {
	id, err := parseMarketID("512345")
	require.NoError(t, err)
	assert.Equal(t, int64(512345), id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		_, err := parseMarketID(bad)
		assert.Error(t, err, bad)
	}

	_, err = marketArg(nil)
	assert.Error(t, err)
}

func TestOutcomeLabel(t *testing.T) {
	m := domain.MarketRecord{Outcomes: []string{"Lakers", "Celtics"}}
	assert.Equal(t, "Celtics", outcomeLabel(m, 1))
	assert.Equal(t, "3", outcomeLabel(m, 3))
}
