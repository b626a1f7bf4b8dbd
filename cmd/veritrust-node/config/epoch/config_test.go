package epochconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/veritrust-dev/veritrust-node/cmd/veritrust-node/config"
	configtest "github.com/veritrust-dev/veritrust-node/cmd/veritrust-node/config/test"
)

func TestEpochSection(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		empty := configtest.EmptyConfig()

		require.Equal(t, IntervalDefault, Interval(empty))

		kind, quorum, timeout := CompletionPolicy(empty)
		require.Equal(t, CompletionPolicyDefault, kind)
		require.Zero(t, quorum)
		require.Zero(t, timeout)
	})

	const path = "../../../../config/example/veritrust"

	var fileConfigTest = func(c *config.Config) {
		require.Equal(t, 30*time.Second, Interval(c))

		kind, quorum, timeout := CompletionPolicy(c)
		require.Equal(t, "quorum", kind)
		require.Equal(t, 3, quorum)
		require.Equal(t, 20*time.Second, timeout)
	}

	configtest.ForEachFileType(path, fileConfigTest)
}
