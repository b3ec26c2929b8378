package telemetry

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openslam-go/scanmatch/config"
	"github.com/openslam-go/scanmatch/geom"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	fname := t.Name() + ".db"
	_ = os.Remove(fname)
	s, err := Open(fname)
	require.NoError(t, err)
	return s
}

func cleanupTestStore(t *testing.T, s *Store) {
	t.Helper()
	fname := t.Name() + ".db"
	s.Close()
	_ = os.Remove(fname)
	_ = os.Remove(fname + "-shm")
	_ = os.Remove(fname + "-wal")
}

func TestOpenAppliesMigrations(t *testing.T) {
	s := setupTestStore(t)
	defer cleanupTestStore(t, s)

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count)
	require.NoError(t, err, "runs table should exist after Open")
	assert.Equal(t, 0, count)
}

func TestRecordAndRetrieveRun(t *testing.T) {
	s := setupTestStore(t)
	defer cleanupTestStore(t, s)

	ctx := context.Background()
	run := Run{
		SensorID:   "lidar-01",
		Operation:  OperationOptimize,
		Iterations: 4,
		Elapsed:    12 * time.Millisecond,
		BestScore:  0.87,
		Pose:       geom.OrientedPoint{X: 1.5, Y: -0.2, Theta: 0.1},
		Config:     config.DefaultMatcherConfig(),
	}
	id, err := s.Record(ctx, run)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	runs, err := s.RunsBySensor(ctx, "lidar-01")
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "lidar-01", got.SensorID)
	assert.Equal(t, OperationOptimize, got.Operation)
	assert.Equal(t, 0.87, got.BestScore)
	assert.Equal(t, 4, got.Iterations)
	assert.Equal(t, config.DefaultMatcherConfig().Delta, got.Config.Delta, "config should round-trip through config_json")
}

func TestRunsBySensorFiltersAndOrders(t *testing.T) {
	s := setupTestStore(t)
	defer cleanupTestStore(t, s)

	ctx := context.Background()
	cfg := config.DefaultMatcherConfig()
	for _, sensorID := range []string{"a", "b", "a"} {
		_, err := s.Record(ctx, Run{SensorID: sensorID, Operation: OperationLikelihood, Config: cfg})
		require.NoError(t, err)
	}

	runsA, err := s.RunsBySensor(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, runsA, 2)
	if len(runsA) == 2 {
		assert.False(t, runsA[1].CreatedAt.Before(runsA[0].CreatedAt), "runs should be returned oldest first")
	}

	runsB, err := s.RunsBySensor(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, runsB, 1)
}
