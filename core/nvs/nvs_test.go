package nvs

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSetGet(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, "/data", "nvs.net80211")
	require.NoError(t, err)

	_, err = s.Get("sta.ssid")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set("sta.ssid", []byte("home")))
	require.NoError(t, s.Set("sta.ssid", []byte("office")))

	v, err := s.Get("sta.ssid")
	require.NoError(t, err)
	assert.Equal(t, "office", string(v))

	exists, err := afero.Exists(fs, "/data/nvs.net80211/sta.ssid.tmp")
	require.NoError(t, err)
	assert.False(t, exists)

	reopened, err := Open(fs, "/data", "nvs.net80211")
	require.NoError(t, err)
	v, err = reopened.Get("sta.ssid")
	require.NoError(t, err)
	assert.Equal(t, "office", string(v))
}

func TestStoreRejectsBadKeys(t *testing.T) {
	s, err := Open(afero.NewMemMapFs(), "/data", "wifi")
	require.NoError(t, err)

	for _, key := range []string{"", "..", "a/b", "this-key-is-too-long"} {
		assert.Error(t, s.Set(key, []byte("x")), key)
		_, err := s.Get(key)
		assert.Error(t, err, key)
	}

	_, err = Open(afero.NewMemMapFs(), "/data", "../escape")
	assert.Error(t, err)
}

func TestStoreReadOnlyFs(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("/data/wifi", 0o755))
	s, err := Open(afero.NewReadOnlyFs(base), "/data", "wifi")
	require.NoError(t, err)
	assert.Error(t, s.Set("sta.ssid", []byte("home")))
}
