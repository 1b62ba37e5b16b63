package testutil_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/sosgather/internal/testutil"
)

func TestMockRunner_RecordsCalls(t *testing.T) {
	runner := testutil.NewMockRunner().WithOutput("db.stats", "{ \"ok\" : 1 }\n")

	res, err := runner.Run(context.Background(), []string{"bash", "-c", "mongo --eval db.stats()"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "{ \"ok\" : 1 }\n", string(res.Output))
	assert.Equal(t, 0, res.ExitCode)

	_, err = runner.Run(context.Background(), []string{"true"}, time.Second)
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"bash", "-c", "mongo --eval db.stats()"},
		{"true"},
	}, runner.Calls())
}

func TestMockRunner_WithError(t *testing.T) {
	boom := errors.New("exit status 1")
	runner := testutil.NewMockRunner().WithError("reserved", boom)

	res, err := runner.Run(context.Background(), []string{"mongo", "reserved_resources"}, time.Second)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, res.ExitCode)
	assert.False(t, res.TimedOut)
}

func TestMockRunner_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testutil.NewMockRunner().Run(ctx, []string{"true"}, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockPackageChecker(t *testing.T) {
	checker := testutil.NewMockPackageChecker("pulp-server")

	assert.True(t, checker.Installed(context.Background(), "pulp-server"))
	assert.False(t, checker.Installed(context.Background(), "pulp-katello"))
}

func TestPulpSysroot(t *testing.T) {
	root := t.TempDir()
	testutil.PulpSysroot(t, root)

	assert.Contains(t, testutil.ReadFile(t, root, "etc/pulp/server.conf"), "password: s3cret")
	assert.Contains(t, testutil.ReadFile(t, root, "etc/default/pulp_workers"), "PULP_CONCURRENCY")
}
