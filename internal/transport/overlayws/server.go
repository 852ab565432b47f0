package overlayws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"chunkfinder.ai/internal/finder"
	"chunkfinder.ai/internal/finder/overlay"
	"chunkfinder.ai/internal/host"
	"chunkfinder.ai/internal/overlayproto"
)

// ObserverPose is the shared observer position a client may drive.
type ObserverPose interface {
	Set(finder.Vec3)
	Clear()
}

// TickSource reports the host tick for bootstrap responses.
type TickSource interface {
	CurrentTick() uint64
}

type Options struct {
	// FrameRateHz is the default frame rate when SUBSCRIBE leaves it unset.
	FrameRateHz int
	// PoseRateHz caps POSE messages per session.
	PoseRateHz int
	Style      overlay.Style
	// Info is the static part of the bootstrap response.
	Info overlayproto.BootstrapResponse
}

type Server struct {
	source    overlay.Source
	observer  ObserverPose
	ticks     TickSource
	projector overlay.Projector
	opts      Options
	schemas   *overlayproto.Schemas
	log       *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(src overlay.Source, observer ObserverPose, ticks TickSource, proj overlay.Projector, opts Options, logger *log.Logger) (*Server, error) {
	schemas, err := overlayproto.LoadSchemas()
	if err != nil {
		return nil, fmt.Errorf("overlay schemas: %w", err)
	}
	if opts.FrameRateHz <= 0 {
		opts.FrameRateHz = 30
	}
	if opts.PoseRateHz <= 0 {
		opts.PoseRateHz = 30
	}
	return &Server{
		source:    src,
		observer:  observer,
		ticks:     ticks,
		projector: proj,
		opts:      opts,
		schemas:   schemas,
		log:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only, see isLoopbackRemote
		},
	}, nil
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		resp := s.opts.Info
		resp.ProtocolVersion = overlayproto.Version
		resp.Style = styleMsg(s.opts.Style)
		if s.ticks != nil {
			resp.Tick = s.ticks.CurrentTick()
		}
		if set := s.source.Current(); set != nil {
			resp.Generation = set.Generation
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, err := s.schemas.DecodeSubscribe(msg)
		if err != nil || sub.ProtocolVersion != overlayproto.Version {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}
		s.normalizeSubscribe(&sub)

		sess := &session{
			id:     fmt.Sprintf("V%d", s.nextID.Add(1)),
			out:    make(chan []byte, 8),
			rateCh: make(chan int, 1),
			poses:  rate.NewLimiter(rate.Limit(s.opts.PoseRateHz), s.opts.PoseRateHz),
		}
		s.logf("session %s: subscribed frame_rate_hz=%d", sess.id, sub.FrameRateHz)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		g, gctx := errgroup.WithContext(ctx)

		// Writer goroutine.
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						return err
					}
				}
			}
		})

		// Frame goroutine.
		renderer := &overlay.Renderer{
			Source:    s.source,
			Camera:    &sess.camera,
			Projector: s.projector,
			Style:     s.opts.Style,
			Sink:      sess,
		}
		g.Go(func() error {
			ticker := time.NewTicker(time.Second / time.Duration(sub.FrameRateHz))
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case hz := <-sess.rateCh:
					ticker.Reset(time.Second / time.Duration(hz))
				case <-ticker.C:
					if _, err := renderer.RenderFrame(); err != nil {
						return err
					}
				}
			}
		})

		// Reader loop: POSE updates and SUBSCRIBE re-sends.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if gctx.Err() != nil {
				break
			}
			s.handle(sess, msg)
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the session goroutines so they don't outlive conn.
		done := make(chan error, 1)
		go func() { done <- g.Wait() }()
		select {
		case err := <-done:
			if err != nil {
				s.logf("session %s: %v", sess.id, err)
			}
		case <-time.After(500 * time.Millisecond):
		}
		s.logf("session %s: closed", sess.id)
	}
}

func (s *Server) handle(sess *session, msg []byte) {
	base, err := overlayproto.DecodeBase(msg)
	if err != nil {
		sess.sendError(overlayproto.ErrBadRequest, "bad json")
		return
	}
	if base.ProtocolVersion != overlayproto.Version {
		sess.sendError(overlayproto.ErrBadRequest, "unsupported protocol_version")
		return
	}
	switch base.Type {
	case overlayproto.TypePose:
		if !sess.poses.Allow() {
			sess.sendError(overlayproto.ErrRateLimit, "too many POSE messages")
			return
		}
		pose, err := s.schemas.DecodePose(msg)
		if err != nil {
			sess.sendError(overlayproto.ErrBadRequest, err.Error())
			return
		}
		if err := s.applyPose(sess, pose); err != nil {
			sess.sendError(overlayproto.ErrBadRequest, err.Error())
		}
	case overlayproto.TypeSubscribe:
		sub, err := s.schemas.DecodeSubscribe(msg)
		if err != nil {
			sess.sendError(overlayproto.ErrBadRequest, err.Error())
			return
		}
		s.normalizeSubscribe(&sub)
		select {
		case <-sess.rateCh:
		default:
		}
		sess.rateCh <- sub.FrameRateHz
	default:
		sess.sendError(overlayproto.ErrBadRequest, "unknown message type")
	}
}

// applyPose rejects the whole message if either position is off the grid.
func (s *Server) applyPose(sess *session, p overlayproto.PoseMsg) error {
	for name, v := range map[string]*[3]float64{"observer": p.Observer, "camera": p.Camera} {
		if v != nil && !vec(*v).Valid() {
			return fmt.Errorf("%s position out of range", name)
		}
	}
	switch {
	case p.Observer != nil:
		s.observer.Set(vec(*p.Observer))
	case p.ClearObserver:
		s.observer.Clear()
	}
	switch {
	case p.Camera != nil:
		sess.camera.Set(vec(*p.Camera))
	case p.ClearCamera:
		sess.camera.Clear()
	}
	return nil
}

func (s *Server) normalizeSubscribe(sub *overlayproto.SubscribeMsg) {
	if sub.FrameRateHz <= 0 {
		sub.FrameRateHz = s.opts.FrameRateHz
	}
	if sub.FrameRateHz > 120 {
		sub.FrameRateHz = 120
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

// session is one overlay client. Its camera is independent of the shared observer.
type session struct {
	id     string
	camera host.Pose
	out    chan []byte
	rateCh chan int
	poses  *rate.Limiter
	frame  uint64
}

// Submit encodes f as FRAME. A frame is dropped when the client is not keeping up.
func (sess *session) Submit(f overlay.Frame) error {
	sess.frame++
	boxes := make([][6]float64, len(f.Boxes))
	for i, b := range f.Boxes {
		boxes[i] = [6]float64{b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z}
	}
	b, err := json.Marshal(overlayproto.FrameMsg{
		Type:            overlayproto.TypeFrame,
		ProtocolVersion: overlayproto.Version,
		Frame:           sess.frame,
		Generation:      f.Generation,
		Boxes:           boxes,
		Style:           styleMsg(f.Style),
	})
	if err != nil {
		return err
	}
	sess.send(b)
	return nil
}

func (sess *session) sendError(code, msg string) {
	b, err := json.Marshal(overlayproto.NewError(code, msg))
	if err != nil {
		return
	}
	sess.send(b)
}

func (sess *session) send(b []byte) {
	select {
	case sess.out <- b:
	default:
	}
}

func styleMsg(st overlay.Style) overlayproto.StyleMsg {
	rgba := func(c overlay.RGBA) [4]float32 { return [4]float32{c.R, c.G, c.B, c.A} }
	return overlayproto.StyleMsg{Fill: rgba(st.Fill), Outline: rgba(st.Outline)}
}

func vec(v [3]float64) finder.Vec3 { return finder.Vec3{X: v[0], Y: v[1], Z: v[2]} }

func isLoopbackRemote(remoteAddr string) bool {
	addr := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		addr = h
	}
	addr = strings.TrimPrefix(addr, "[")
	addr = strings.TrimSuffix(addr, "]")
	ip := net.ParseIP(addr)
	return ip != nil && ip.IsLoopback()
}
