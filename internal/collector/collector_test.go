package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingestor/internal/apiform"
	"ingestor/internal/shardstore"
)

func sampleSpec(name string) *Spec {
	return &Spec{
		Name:   name,
		Period: time.Minute,
		Fetch:  func(ctx context.Context) ([]interface{}, error) { return nil, nil },
		Form:   func() *apiform.ApiForm { return &apiform.ApiForm{Name: name} },
	}
}

func TestRegisterGetAll(t *testing.T) {
	name := "collector_test_register_get_all"
	Register(sampleSpec(name))

	got, ok := Get(name)
	require.True(t, ok)
	assert.Equal(t, name, got.Name)

	found := false
	for _, s := range All() {
		if s.Name == name {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	name := "collector_test_duplicate"
	Register(sampleSpec(name))
	assert.Panics(t, func() { Register(sampleSpec(name)) })
}

func TestGetMissingReturnsFalse(t *testing.T) {
	_, ok := Get("collector_test_never_registered")
	assert.False(t, ok)
}

func TestSpecString(t *testing.T) {
	s := sampleSpec("collector_test_string")
	assert.Contains(t, s.String(), "collector_test_string")
}

func TestDefaultShardPath(t *testing.T) {
	path := DefaultShardPath("/data/store", "securities", shardstore.JSON)
	assert.Equal(t, "/data/store/securities/json", path)
}
