//go:build integration

package mqtt

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/solarcast/core/model"
)

func startMosquitto(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "eclipse-mosquitto:2.0",
			ExposedPorts: []string{"1883/tcp"},
			Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
			WaitingFor:   wait.ForListeningPort("1883/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "1883")
	require.NoError(t, err)
	return fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

func TestIntegration_PublishSubscribe(t *testing.T) {
	broker := startMosquitto(t)

	sub, err := NewPahoClient(Config{Broker: broker, ClientID: "sub", QoS: 1})
	require.NoError(t, err)
	defer sub.Disconnect()
	got := make(chan model.Reading, 1)
	require.NoError(t, sub.SubscribeReadings(func(r model.Reading) { got <- r }))

	pub, err := NewPahoClient(Config{Broker: broker, ClientID: "pub", QoS: 1})
	require.NoError(t, err)
	defer pub.Disconnect()
	require.NoError(t, pub.PublishReading(context.Background(), sample()))

	select {
	case r := <-got:
		require.Equal(t, sample().ACPower, r.ACPower)
	case <-time.After(5 * time.Second):
		t.Fatal("reading not received")
	}
}
