package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/negotiation-bridge/internal/geniusweb"
)

const (
	remoteReadLimit = 1 << 20
	// ProfileParameter - параметр Settings с JSON профиля для удалённой партии
	ProfileParameter = "profileJSON"
)

// RemoteParty - партия на внешнем сервере; события и действия идут JSON-сообщениями по websocket
type RemoteParty struct {
	geniusweb.DefaultParty

	url     string
	log     *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	g      *errgroup.Group
	cancel context.CancelFunc
}

func NewRemoteParty(url string, logger *zap.Logger) *RemoteParty {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteParty{
		url:     url,
		log:     logger.With(zap.String("remote_party", url)),
		timeout: DefaultPartyTimeout,
	}
}

// RemoteFactory - фабрика для адаптера
func RemoteFactory(url string, logger *zap.Logger) PartyFactory {
	return func() geniusweb.Party { return NewRemoteParty(url, logger) }
}

func (p *RemoteParty) Description() string { return "remote party at " + p.url }

// NotifyChange пересылает событие серверу. На Settings открывается соединение,
// а профиль по file: URI вкладывается в параметры: удалённая сторона не видит наш диск.
func (p *RemoteParty) NotifyChange(ctx context.Context, info geniusweb.Inform) error {
	if s, ok := info.(*geniusweb.Settings); ok {
		if err := p.dial(ctx); err != nil {
			return err
		}
		inlined, err := inlineProfile(s)
		if err != nil {
			return err
		}
		info = inlined
	}

	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return geniusweb.ErrNotConnected
	}

	data, err := geniusweb.MarshalInform(info)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("send %s: %w", geniusweb.InformName(info), err)
	}
	return nil
}

func (p *RemoteParty) dial(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, p.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.url, err)
	}
	conn.SetReadLimit(remoteReadLimit)

	readCtx, readCancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(readCtx)
	g.Go(func() error { return p.readActions(gctx, conn) })

	p.conn = conn
	p.g = g
	p.cancel = readCancel
	p.log.Debug("connected")
	return nil
}

func (p *RemoteParty) readActions(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			p.log.Debug("remote read stopped", zap.Error(err))
			return nil
		}
		action, err := geniusweb.UnmarshalAction(data)
		if err != nil {
			p.log.Warn("bad action from remote party", zap.Error(err))
			continue
		}
		if err := p.Send(action); err != nil {
			p.log.Warn("action not forwarded", zap.Error(err))
		}
	}
}

func (p *RemoteParty) Terminate() {
	p.mu.Lock()
	conn, g, cancel := p.conn, p.g, p.cancel
	p.conn = nil
	p.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "finished")
		cancel()
		_ = g.Wait()
	}
	p.DefaultParty.Terminate()
}

func inlineProfile(s *geniusweb.Settings) (*geniusweb.Settings, error) {
	out := *s
	out.Parameters = make(map[string]any, len(s.Parameters)+1)
	for k, v := range s.Parameters {
		out.Parameters[k] = v
	}

	profile, err := geniusweb.LoadProfile(s.ProfileURI)
	if err != nil {
		return nil, err
	}
	data, err := profileBytes(s.ProfileURI, profile)
	if err != nil {
		return nil, err
	}
	out.Parameters[ProfileParameter] = string(data)
	return &out, nil
}

func profileBytes(uri string, profile geniusweb.UtilitySpace) ([]byte, error) {
	la, ok := profile.(*geniusweb.LinearAdditiveUtilitySpace)
	if !ok {
		return nil, fmt.Errorf("%w: %s", geniusweb.ErrUnsupportedProfile, uri)
	}
	return la.MarshalJSON()
}

// materializeProfile пишет вложенный профиль на диск и подменяет URI в Settings
func materializeProfile(s *geniusweb.Settings, dir string) (*geniusweb.Settings, error) {
	raw, ok := s.Parameters[ProfileParameter].(string)
	if !ok {
		return s, nil
	}
	f, err := os.CreateTemp(dir, "remote-profile-*.json")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if _, err := f.WriteString(raw); err != nil {
		return nil, err
	}

	out := *s
	out.ProfileURI = geniusweb.ProfileURI(f.Name())
	out.Parameters = make(map[string]any, len(s.Parameters))
	for k, v := range s.Parameters {
		if k != ProfileParameter {
			out.Parameters[k] = v
		}
	}
	return &out, nil
}
