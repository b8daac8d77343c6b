package bridge

import (
	"context"
	"net/http"
	"os"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/kitbuilder587/negotiation-bridge/internal/geniusweb"
)

// PartyServer отдаёт партии по websocket: одно соединение - одна партия на одну сессию
type PartyServer struct {
	factory PartyFactory
	log     *zap.Logger
	tmpDir  string
	obs     Observer
}

// NewPartyServer; из opts используется только WithObserver
func NewPartyServer(factory PartyFactory, tmpDir string, logger *zap.Logger, opts ...Option) *PartyServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &PartyServer{factory: factory, log: logger, tmpDir: tmpDir, obs: o.observer}
}

type wsConnection struct {
	ctx  context.Context
	conn *websocket.Conn
}

func (c *wsConnection) Send(action geniusweb.Action) error {
	data, err := geniusweb.MarshalAction(action)
	if err != nil {
		return err
	}
	return c.conn.Write(c.ctx, websocket.MessageText, data)
}

func (s *PartyServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(remoteReadLimit)

	ctx := r.Context()
	party := s.factory()
	party.Connect(&wsConnection{ctx: ctx, conn: conn})
	defer party.Terminate()

	s.obs.PartyStarted()
	defer s.obs.PartyStopped()

	dir, err := os.MkdirTemp(s.tmpDir, "gwbridge-remote-*")
	if err != nil {
		s.log.Error("create profile dir", zap.Error(err))
		_ = conn.Close(websocket.StatusInternalError, "no profile dir")
		return
	}
	defer os.RemoveAll(dir)

	log := s.log.With(zap.String("party", party.Description()))
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				log.Debug("party connection closed", zap.Error(err))
			}
			return
		}
		info, err := geniusweb.UnmarshalInform(data)
		if err != nil {
			log.Warn("bad inform", zap.Error(err))
			continue
		}
		if settings, ok := info.(*geniusweb.Settings); ok {
			if info, err = materializeProfile(settings, dir); err != nil {
				log.Error("materialize profile", zap.Error(err))
				_ = conn.Close(websocket.StatusInternalError, "profile")
				return
			}
		}
		if err := party.NotifyChange(ctx, info); err != nil {
			s.obs.PartyFailure(string(FailureNotify))
			log.Warn("party notify failed", zap.String("inform", geniusweb.InformName(info)), zap.Error(err))
		}
		if _, ok := info.(*geniusweb.Finished); ok {
			_ = conn.Close(websocket.StatusNormalClosure, "finished")
			return
		}
	}
}
