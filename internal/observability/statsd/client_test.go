package statsd

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readLine(t *testing.T, conn *net.UDPConn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 1024)
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func TestClient_Lines(t *testing.T) {
	srv := listen(t)
	c, err := New(Config{
		Address: srv.LocalAddr().String(),
		Prefix:  " connectedin. ",
		Tags:    map[string]string{"env": "dev", " service ": " api "},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	c.Count("http.requests", 1, map[string]string{"status": "200", "env": "ci"})
	assert.Equal(t, "connectedin.http.requests:1|c|#env:ci,service:api,status:200", readLine(t, srv))

	c.Timing("http/latency", 1500*time.Microsecond, nil)
	assert.Equal(t, "connectedin.http_latency:1.5|ms|#env:dev,service:api", readLine(t, srv))

	c.Gauge("sessions", 3, nil)
	assert.Equal(t, "connectedin.sessions:3|g|#env:dev,service:api", readLine(t, srv))
}

func TestClient_Name(t *testing.T) {
	c := &Client{prefix: "app"}
	tests := map[string]string{
		"":               "",
		" . ":            "",
		"cache..hit":     "app.cache.hit",
		"a b/c":          "app.a_b_c",
		"auth:sign|in@x": "app.auth_sign_in_x",
	}
	for in, want := range tests {
		assert.Equal(t, want, c.name(in), in)
	}

	assert.Equal(t, "plain", (&Client{}).name("plain"))
}

func TestFormatTags(t *testing.T) {
	assert.Empty(t, formatTags(nil, nil))
	assert.Empty(t, formatTags(nil, map[string]string{" ": "dropped"}))
	assert.Equal(t, "|#a:1,b:2", formatTags(map[string]string{"b": "2"}, map[string]string{"a": "1"}))
}

func TestClient_NilAndClosedAreNoops(t *testing.T) {
	var nilClient *Client
	assert.NotPanics(t, func() {
		nilClient.Count("x", 1, nil)
		nilClient.Timing("x", time.Second, nil)
		require.NoError(t, nilClient.Close())
	})

	srv := listen(t)
	c, err := New(Config{Address: srv.LocalAddr().String()})
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.NotPanics(t, func() { c.Count("after.close", 1, nil) })
}

func TestNew_RequiresAddress(t *testing.T) {
	_, err := New(Config{Address: "  "})
	require.Error(t, err)
}
