package scenario_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"simulation-server/internal/models"
	"simulation-server/internal/scenario"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"tech_pm.json":     {Data: []byte(validJSON)},
		"health_lead.yaml": {Data: []byte(strings.Replace(validYAML, "id: tech_pm", "id: health_lead", 1))},
		"broken.json":      {Data: []byte(`{"actions": {}}`)},
		"README.md":        {Data: []byte("not a scenario")},
		"Bad Name.json":    {Data: []byte(validJSON)},
	}
}

func TestFileLoader_Load(t *testing.T) {
	loader := scenario.NewFSLoader(testFS(), zap.NewNop())
	ctx := context.Background()

	t.Run("JSON file", func(t *testing.T) {
		sc, err := loader.Load(ctx, "tech_pm")
		require.NoError(t, err)
		assert.Equal(t, "tech_pm", sc.ID)
	})

	t.Run("YAML file", func(t *testing.T) {
		sc, err := loader.Load(ctx, "health_lead")
		require.NoError(t, err)
		assert.Equal(t, "health_lead", sc.ID)
		assert.Equal(t, 2, sc.Version)
	})

	t.Run("Not found", func(t *testing.T) {
		_, err := loader.Load(ctx, "missing")
		assert.True(t, errors.Is(err, models.ErrNotFound))
		assert.True(t, errors.Is(err, models.ErrScenarioNotFound))
		assert.False(t, errors.Is(err, models.ErrMalformedScenario))
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := loader.Load(ctx, "broken")
		assert.True(t, errors.Is(err, models.ErrMalformedScenario))
		assert.False(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("Unsafe id is not found", func(t *testing.T) {
		for _, id := range []string{"../secrets", "Unknown.Scenario", "Bad Name"} {
			_, err := loader.Load(ctx, id)
			assert.True(t, errors.Is(err, models.ErrScenarioNotFound), id)
			assert.False(t, errors.Is(err, models.ErrInvalidScenarioID), id)
		}
	})
}

func TestFileLoader_DocumentIDMismatch(t *testing.T) {
	fsys := fstest.MapFS{
		"renamed.json": {Data: []byte(strings.Replace(validJSON, "{", `{"id": "other",`, 1))},
	}
	loader := scenario.NewFSLoader(fsys, zap.NewNop())

	_, err := loader.Load(context.Background(), "renamed")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrMalformedScenario))
	assert.Contains(t, err.Error(), "document id 'other' does not match scenario id 'renamed'")

	_, err = loader.Load(context.Background(), "other")
	assert.True(t, errors.Is(err, models.ErrScenarioNotFound))
}

func TestFileLoader_List(t *testing.T) {
	loader := scenario.NewFSLoader(testFS(), zap.NewNop())

	ids, err := loader.IDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"broken", "health_lead", "tech_pm"}, ids)

	summaries, err := loader.List(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2) // broken пропускается
	assert.Equal(t, "Release under pressure", summaries[1].Meta["title"])
}
