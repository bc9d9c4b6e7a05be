package spjs

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
)

var lastID int64

func nextID() string {
	id := atomic.AddInt64(&lastID, 1)
	return "cmd_" + strconv.FormatInt(id, 36)
}

type client interface {
	Messages() chan interface{}
	SendJSON(v JSON)
	WriteString(data string)
}

// Port exposes one serial device attached to the SPJS server as a
// command channel with per-command completion tracking. It satisfies
// the illuminator's Port interface.
type Port struct {
	sp   client
	name string
	baud int

	mx      sync.Mutex
	waiting map[string]chan error
}

func NewPort(sp *SPJS, name string, baud int) *Port {
	return newPort(sp, name, baud)
}

func newPort(sp client, name string, baud int) *Port {
	p := &Port{
		sp:      sp,
		name:    name,
		baud:    baud,
		waiting: make(map[string]chan error, 100),
	}
	go p.loop()
	return p
}

func (p *Port) loop() {
	for resp := range p.sp.Messages() {
		switch msg := resp.(type) {
		case *ErrorMessage:
			log.Println("ERROR: spjs:", msg.Error)
		case *CmdStatus:
			switch msg.Cmd {
			case "Complete":
				p.settle(msg.ID, nil)
			case "Error":
				p.settle(msg.ID, errors.New("spjs: "+msg.Data))
			case "WipedQueue":
				p.settleAll(errors.New("spjs: wiped queue"))
			}
		case *SerialPortList:
			for _, port := range msg.SerialPorts {
				if port.Name == p.name && !port.IsOpen {
					go p.sp.WriteString(fmt.Sprintf("open %s %d", p.name, p.baud))
				}
			}
		}
	}
}

func (p *Port) settle(id string, err error) {
	p.mx.Lock()
	ch := p.waiting[id]
	delete(p.waiting, id)
	p.mx.Unlock()
	if ch != nil {
		ch <- err
	}
}

func (p *Port) settleAll(err error) {
	p.mx.Lock()
	for id, ch := range p.waiting {
		delete(p.waiting, id)
		ch <- err
	}
	p.mx.Unlock()
}

// Send queues data for the port and blocks until the server reports
// the command complete or failed.
func (p *Port) Send(data []byte) error {
	id := nextID()
	ch := make(chan error, 1)
	p.mx.Lock()
	p.waiting[id] = ch
	p.mx.Unlock()

	p.sp.SendJSON(JSON{Port: p.name, Data: []Data{{Data: string(data), ID: id}}})
	return <-ch
}
