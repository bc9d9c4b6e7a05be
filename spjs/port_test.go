package spjs

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeSPJS struct {
	messages chan interface{}
	sent     chan JSON
	raw      chan string
}

func newFakeSPJS() *fakeSPJS {
	return &fakeSPJS{
		messages: make(chan interface{}, 10),
		sent:     make(chan JSON, 10),
		raw:      make(chan string, 10),
	}
}

func (f *fakeSPJS) Messages() chan interface{} { return f.messages }
func (f *fakeSPJS) SendJSON(v JSON)            { f.sent <- v }
func (f *fakeSPJS) WriteString(data string)    { f.raw <- data }

func TestPort_Send(t *testing.T) {
	f := newFakeSPJS()
	p := newPort(f, "/dev/illuminator", 9600)

	errCh := make(chan error, 1)
	go func() { errCh <- p.Send([]byte("CSN\n")) }()

	var cmd JSON
	select {
	case cmd = <-f.sent:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for sendjson")
	}
	assert.Equal(t, "/dev/illuminator", cmd.Port)
	assert.Len(t, cmd.Data, 1)
	assert.Equal(t, "CSN\n", cmd.Data[0].Data)

	f.messages <- &CmdStatus{Cmd: "Complete", ID: cmd.Data[0].ID}

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

func TestPort_SendError(t *testing.T) {
	f := newFakeSPJS()
	p := newPort(f, "com3", 9600)

	errCh := make(chan error, 1)
	go func() { errCh <- p.Send([]byte("CSF\n")) }()

	cmd := <-f.sent
	f.messages <- &CmdStatus{Cmd: "Error", Data: "port not open", ID: cmd.Data[0].ID}

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for error")
	}
}

func TestPort_ReopensClosedPort(t *testing.T) {
	f := newFakeSPJS()
	newPort(f, "com3", 19200)

	f.messages <- &SerialPortList{SerialPorts: []SerialPort{
		{Name: "com4", IsOpen: false},
		{Name: "com3", IsOpen: false},
	}}

	select {
	case cmd := <-f.raw:
		assert.Equal(t, "open com3 19200", cmd)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for open command")
	}
}

func TestParseMessage(t *testing.T) {
	parse := func(s string) interface{} {
		var msg map[string]json.RawMessage
		assert.NoError(t, json.Unmarshal([]byte(s), &msg))
		val, err := parseMessage([]byte(s), msg)
		assert.NoError(t, err)
		return val
	}

	val := parse(`{"Error":"bad port"}`)
	assert.Equal(t, &ErrorMessage{Error: "bad port"}, val)

	val = parse(`{"SerialPorts":[{"Name":"com3","IsOpen":true,"Baud":9600}]}`)
	list, ok := val.(*SerialPortList)
	assert.True(t, ok)
	assert.Len(t, list.SerialPorts, 1)
	assert.Equal(t, "com3", list.SerialPorts[0].Name)

	val = parse(`{"Cmd":"Complete","QCnt":0,"Id":"cmd_1"}`)
	status, ok := val.(*CmdStatus)
	assert.True(t, ok)
	assert.Equal(t, "Complete", status.Cmd)
	assert.Equal(t, "cmd_1", status.ID)

	val = parse(`{"P":"com3","D":"ok\n"}`)
	frame, ok := val.(*DataFrame)
	assert.True(t, ok)
	assert.Equal(t, "ok\n", frame.Data)

	_, err := parseMessage([]byte(`{"X":1}`), map[string]json.RawMessage{"X": json.RawMessage("1")})
	assert.Error(t, err)
}
