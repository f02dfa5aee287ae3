package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/stakeout/pkg/config"
	"github.com/entrhq/stakeout/pkg/logging"
)

// testRegistry builds a registry with pre-seeded sessions that never touch a
// real browser: controllers stay Uninitialized, and Teardown on that state is
// a pure state-machine move.
func testRegistry(t *testing.T, stakes ...string) *Registry {
	t.Helper()
	log, _ := logging.NewLogger("registry-test")
	paths, err := newArtifactPaths(t.TempDir())
	require.NoError(t, err)

	r := newRegistry(config.Default(), nil, paths, log)
	for i, stake := range stakes {
		r.sessions[stake] = newController(stake, config.Default(), nil, paths, log)
		if i == 0 {
			r.defaultKey = stake
		}
	}
	return r
}

func TestResolveEmptyKeySelectsDefault(t *testing.T) {
	r := testRegistry(t, "alpha", "beta")
	assert.Equal(t, "alpha", r.resolve(""))
	assert.Equal(t, "beta", r.resolve("beta"))
}

func TestResolveEmptyKeyWithNoSessions(t *testing.T) {
	r := testRegistry(t)
	assert.Equal(t, DefaultStake, r.resolve(""))
}

func TestGetIdentityIsStable(t *testing.T) {
	r := testRegistry(t, "alpha")

	first, err := r.Get("alpha")
	require.NoError(t, err)
	second, err := r.Get("alpha")
	require.NoError(t, err)
	assert.Same(t, first, second)

	viaDefault, err := r.Get("")
	require.NoError(t, err)
	assert.Same(t, first, viaDefault)
}

func TestGetUnknownStake(t *testing.T) {
	r := testRegistry(t, "alpha")
	_, err := r.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownStake)
}

func TestStakesSorted(t *testing.T) {
	r := testRegistry(t, "zulu", "alpha", "mike")
	assert.Equal(t, []string{"alpha", "mike", "zulu"}, r.Stakes())
}

func TestCloseRemovesSession(t *testing.T) {
	r := testRegistry(t, "alpha", "beta")

	r.Close("beta")
	assert.Equal(t, []string{"alpha"}, r.Stakes())
	_, err := r.Get("beta")
	assert.ErrorIs(t, err, ErrUnknownStake)
}

func TestCloseDefaultPromotesRemaining(t *testing.T) {
	r := testRegistry(t, "alpha", "beta", "gamma")
	require.Equal(t, "alpha", r.resolve(""))

	r.Close("alpha")
	// Lowest remaining key becomes the new default.
	assert.Equal(t, "beta", r.resolve(""))

	promoted, err := r.Get("")
	require.NoError(t, err)
	direct, err := r.Get("beta")
	require.NoError(t, err)
	assert.Same(t, direct, promoted)
}

func TestCloseLastSessionClearsDefault(t *testing.T) {
	r := testRegistry(t, "alpha")
	r.Close("alpha")
	assert.Empty(t, r.Stakes())
	assert.Equal(t, DefaultStake, r.resolve(""))
}

func TestCloseUnknownStakeIsNoOp(t *testing.T) {
	r := testRegistry(t, "alpha")
	r.Close("missing")
	assert.Equal(t, []string{"alpha"}, r.Stakes())
}

func TestCloseAll(t *testing.T) {
	r := testRegistry(t, "alpha", "beta")
	ctrl, err := r.Get("alpha")
	require.NoError(t, err)

	r.CloseAll()
	assert.Empty(t, r.Stakes())
	assert.Equal(t, "closed", ctrl.State())
}

func TestCloseTearsControllerDown(t *testing.T) {
	r := testRegistry(t, "alpha")
	ctrl, err := r.Get("alpha")
	require.NoError(t, err)

	r.Close("alpha")
	assert.Equal(t, "closed", ctrl.State())
}
