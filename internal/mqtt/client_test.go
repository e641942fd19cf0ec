package mqtt

import (
	"fmt"
	"net"
	"testing"
	"time"

	"moebot2mqtt/internal/util"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/cmnd/mow_time"
	r := commandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "mow_time", "command extract")
}

func TestCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	r := commandExtractor(baseTopic)

	assert.Equal(len(r.FindAllStringSubmatch("loremTopic/stats/battery", 1)), 0, "no matches")
	assert.Equal(len(r.FindAllStringSubmatch("loremTopic/cmnd/start/extra", 1)), 0, "no matches")
}

type testMessage struct {
	topic   string
	payload []byte
}

func (m *testMessage) Duplicate() bool   { return false }
func (m *testMessage) Qos() byte         { return 0 }
func (m *testMessage) Retained() bool    { return false }
func (m *testMessage) Topic() string     { return m.topic }
func (m *testMessage) MessageID() uint16 { return 0 }
func (m *testMessage) Payload() []byte   { return m.payload }
func (m *testMessage) Ack()              {}

func TestParseMQTTCommandNormalizesPayload(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	client := CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)

	parsed, err := client.ParseMQTTCommand(&testMessage{
		topic:   "moebot/cmnd/start",
		payload: []byte("  SPIRAL \n"),
	})
	assert.NoError(err)
	assert.Equal(COMMAND_START, parsed.Command)
	assert.Equal(PAYLOAD_SPIRAL, parsed.Payload)

	_, err = client.ParseMQTTCommand(&testMessage{
		topic:   "moebot/stats/battery",
		payload: []byte("93"),
	})
	assert.Error(err)
}

func TestClientBrokerRoundTrip(t *testing.T) {

	assert := assert.New(t)

	port, broker := startTestBroker(t)
	defer broker.Close()

	cfg := util.LoadTestConfig()
	cfg.MQTT.Port = port

	client := CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)

	connected := make(chan error, 1)
	client.Connect(func(err error) {
		connected <- err
	}, 5*time.Second)
	require.NoError(t, <-connected)
	defer client.Disconnect(time.Second)

	commands := make(chan *ParsedMQTTCommand, 1)
	subscribed := make(chan error, 1)
	client.SubscribeToCommandTopic(func(_ mqtt.Client, msg mqtt.Message) {
		if parsed, err := client.ParseMQTTCommand(msg); err == nil {
			commands <- parsed
		}
	}, func(err error) {
		subscribed <- err
	}, 5*time.Second)
	require.NoError(t, <-subscribed)

	published := make(chan error, 1)
	client.Publish(client.CommandTopic(COMMAND_MOW_TIME), " 6 ", 1, false, func(err error) {
		published <- err
	}, 5*time.Second)
	require.NoError(t, <-published)

	select {
	case parsed := <-commands:
		assert.Equal(COMMAND_MOW_TIME, parsed.Command)
		assert.Equal("6", parsed.Payload)
	case <-time.After(5 * time.Second):
		t.Fatal("command not received")
	}
}

func startTestBroker(t *testing.T) (int, *mochi.Server) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	server := mochi.New(&mochi.Options{
		InlineClient: true,
	})
	require.NoError(t, server.AddHook(new(auth.AllowHook), nil))

	tcp := listeners.NewTCP(listeners.Config{ID: "t1", Address: fmt.Sprintf("127.0.0.1:%d", port)})
	require.NoError(t, server.AddListener(tcp))

	go func() {
		if err := server.Serve(); err != nil {
			t.Log(err)
		}
	}()

	return port, server
}
