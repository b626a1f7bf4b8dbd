package nodeconfig

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/veritrust-dev/veritrust-node/cmd/veritrust-node/config"
	configtest "github.com/veritrust-dev/veritrust-node/cmd/veritrust-node/config/test"
)

func TestNodeSection(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		empty := configtest.EmptyConfig()

		require.Equal(t, ListenAddressDefault, ListenAddress(empty))
		require.Equal(t, StoragePathDefault, StoragePath(empty))
		require.Empty(t, Key(empty))
		require.Nil(t, Peers(empty))
	})

	const path = "../../../../config/example/veritrust"

	var fileConfigTest = func(c *config.Config) {
		require.Equal(t, ":9751", ListenAddress(c))
		require.Equal(t, "./data/veritrust/opinions.db", StoragePath(c))
		require.Equal(t, "./keys/node.key", Key(c))

		require.Equal(t, []Peer{
			{
				ID:      "9XoYyKSYbEWUQSZvcmUrkR3RHv4xK8D1S1zv6mdCMHzw",
				Address: "10.0.0.2:9750",
			},
			{
				ID:      "4rJnbDzMiecAtRTnVFS6SKSGxsPB5mXMhutRbCFp8WGe",
				Address: "10.0.0.3:9750",
			},
		}, Peers(c))
	}

	configtest.ForEachFileType(path, fileConfigTest)
}
