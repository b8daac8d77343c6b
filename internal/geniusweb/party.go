package geniusweb

import (
	"context"
	"sync"
)

// Connection - канал от партии к протоколу
type Connection interface {
	Send(action Action) error
}

type Capabilities struct {
	Behaviours   []string
	ProfileTypes []string
}

func (c Capabilities) Supports(protocol string) bool {
	for _, b := range c.Behaviours {
		if b == protocol {
			return true
		}
	}
	return false
}

// Party - агент GeniusWeb: получает события, действия шлёт через Connection
type Party interface {
	Connect(conn Connection)
	NotifyChange(ctx context.Context, info Inform) error
	Capabilities() Capabilities
	Description() string
	Terminate()
}

// DefaultParty хранит соединение; встраивается в конкретные партии
type DefaultParty struct {
	mu   sync.RWMutex
	conn Connection
}

func (p *DefaultParty) Connect(conn Connection) {
	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()
}

func (p *DefaultParty) Send(action Action) error {
	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.Send(action)
}

func (p *DefaultParty) Capabilities() Capabilities {
	return Capabilities{
		Behaviours:   []string{ProtocolSAOP},
		ProfileTypes: []string{linearAdditiveType},
	}
}

func (p *DefaultParty) Terminate() {
	p.mu.Lock()
	p.conn = nil
	p.mu.Unlock()
}
