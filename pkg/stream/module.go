// Package stream serves a running simulation to websocket clients as a
// stream of CBOR messages.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cfoust/voxphys/pkg/physics"
	"github.com/cfoust/voxphys/pkg/sim"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

const CLIENT_MESSAGE_LIMIT = 32

var ErrUnknownCommand = fmt.Errorf("unknown command")

type client struct {
	id        uint32
	host      string
	send      chan []byte
	closeSlow func()
}

type Ingress struct {
	runner  *sim.Runner
	limiter *rate.Limiter

	mutex      deadlock.Mutex
	clients    map[*client]struct{}
	lastID     uint32
	httpServer *http.Server
}

// NewIngress streams runner's snapshots to clients, at most
// snapshotsPerSecond of them. Contact events are always sent.
func NewIngress(runner *sim.Runner, snapshotsPerSecond float64) *Ingress {
	return &Ingress{
		runner:  runner,
		limiter: rate.NewLimiter(rate.Limit(snapshotsPerSecond), 1),
		clients: make(map[*client]struct{}),
	}
}

func WriteTimeout(ctx context.Context, timeout time.Duration, c *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Write(ctx, websocket.MessageBinary, msg)
}

func (server *Ingress) addClient(c *client) {
	server.mutex.Lock()
	server.lastID++
	c.id = server.lastID
	server.clients[c] = struct{}{}
	server.mutex.Unlock()
}

func (server *Ingress) removeClient(c *client) {
	server.mutex.Lock()
	delete(server.clients, c)
	server.mutex.Unlock()
}

// Clients is the number of connected clients.
func (server *Ingress) Clients() int {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	return len(server.clients)
}

func (server *Ingress) snapshot() ([]byte, error) {
	var snapshot physics.Snapshot
	server.runner.Do(func(w *physics.World) {
		snapshot = w.Snapshot()
	})
	return cbor.Marshal(SnapshotMessage{
		Op:       SnapshotOp,
		Snapshot: snapshot,
	})
}

// RunCommand applies a client command to the simulation.
func (server *Ingress) RunCommand(command CommandMessage) error {
	switch command.Command {
	case CommandPause:
		server.runner.Pause()
		return nil
	case CommandResume:
		server.runner.Resume()
		return nil
	case CommandImpulse, CommandForce, CommandTeleport:
	default:
		return fmt.Errorf("%q: %w", command.Command, ErrUnknownCommand)
	}

	var err error
	server.runner.Do(func(w *physics.World) {
		var body *physics.RigidBody
		for _, handle := range w.Bodies() {
			if handle.ID() == command.Body {
				body = w.Body(handle)
				break
			}
		}
		if body == nil {
			err = fmt.Errorf("body %d: %w", command.Body, physics.ErrUnknownBody)
			return
		}

		switch command.Command {
		case CommandImpulse:
			body.ApplyImpulse(command.Vector)
		case CommandForce:
			body.ApplyForce(command.Vector)
		case CommandTeleport:
			body.SetPosition(command.Vector)
		}
	})
	return err
}

func (server *Ingress) respond(c *client, command CommandMessage, err error) {
	packet := ResponseMessage{
		Op:      ResponseOp,
		Id:      command.Id,
		Success: err == nil,
	}
	if err != nil {
		packet.Response = err.Error()
	}

	bytes, _ := cbor.Marshal(packet)
	select {
	case c.send <- bytes:
	default:
		go c.closeSlow()
	}
}

func (server *Ingress) HandleClient(ctx context.Context, c *websocket.Conn, host string) error {
	client := &client{
		host: host,
		send: make(chan []byte, CLIENT_MESSAGE_LIMIT),
		closeSlow: func() {
			c.Close(websocket.StatusPolicyViolation, "connection too slow to keep up with messages")
		},
	}

	server.addClient(client)
	defer server.removeClient(client)

	logger := log.With().Uint32("clientId", client.id).Str("host", host).Logger()
	logger.Info().Msg("client joined")

	// send the current state right away instead of waiting for a tick
	snapshot, err := server.snapshot()
	if err != nil {
		logger.Error().Err(err).Msg("could not build snapshot")
		return err
	}
	client.send <- snapshot

	receive := make(chan []byte)
	go func() {
		for {
			typ, message, err := c.Read(ctx)
			if err != nil {
				return
			}
			if typ != websocket.MessageBinary {
				continue
			}
			select {
			case receive <- message:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case msg := <-receive:
			var generic GenericMessage
			if err := cbor.Unmarshal(msg, &generic); err != nil || generic.Op != CommandOp {
				continue
			}

			var command CommandMessage
			if err := cbor.Unmarshal(msg, &command); err != nil {
				continue
			}

			err := server.RunCommand(command)
			logger.Debug().Err(err).Str("command", command.Command).Uint32("body", command.Body).Msg("client command")
			server.respond(client, command, err)
		case msg := <-client.send:
			err := WriteTimeout(ctx, time.Second*5, c, msg)
			if err != nil {
				logger.Error().Msg("client missed write timeout; disconnecting")
				return err
			}
		case <-ctx.Done():
			logger.Info().Msg("client left")
			return ctx.Err()
		}
	}
}

func (server *Ingress) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})

	if err != nil {
		log.Error().Err(err).Msg("error accepting client connection")
		return
	}

	defer c.Close(websocket.StatusInternalError, "operational fault during stream")

	hostname := r.RemoteAddr
	original, ok := r.Header["X-Forwarded-For"]
	if ok {
		hostname = original[0]
	}

	err = server.HandleClient(r.Context(), c, hostname)
	if errors.Is(err, context.Canceled) {
		return
	}
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
		websocket.CloseStatus(err) == websocket.StatusGoingAway {
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("client connection failed")
		return
	}
}

func (server *Ingress) Broadcast(msg []byte) {
	server.mutex.Lock()
	defer server.mutex.Unlock()

	for client := range server.clients {
		select {
		case client.send <- msg:
		default:
			go client.closeSlow()
		}
	}
}

// Pump forwards the runner's output to clients until ctx is done.
func (server *Ingress) Pump(ctx context.Context) {
	snapshots := server.runner.Snapshots().Subscribe()
	defer snapshots.Done()
	events := server.runner.Events().Subscribe()
	defer events.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot := <-snapshots.Recv():
			if !server.limiter.Allow() {
				continue
			}

			bytes, err := cbor.Marshal(SnapshotMessage{
				Op:       SnapshotOp,
				Snapshot: snapshot,
			})
			if err != nil {
				log.Error().Err(err).Msg("could not encode snapshot")
				continue
			}
			server.Broadcast(bytes)
		case batch := <-events.Recv():
			bytes, err := cbor.Marshal(ContactMessage{
				Op:       ContactOp,
				Tick:     batch.Tick,
				Contacts: contactsOf(batch.Events),
			})
			if err != nil {
				log.Error().Err(err).Msg("could not encode contacts")
				continue
			}
			server.Broadcast(bytes)
		}
	}
}

func (server *Ingress) Serve(ctx context.Context, port int) error {
	listen, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		log.Error().Err(err).Msg("failed to bind WebSocket port")
		return err
	}

	log.Info().Msgf("listening on ws://%v", listen.Addr())

	httpServer := &http.Server{
		Handler: server,
	}

	server.mutex.Lock()
	server.httpServer = httpServer
	server.mutex.Unlock()

	go server.Pump(ctx)

	return httpServer.Serve(listen)
}

func (server *Ingress) Shutdown(ctx context.Context) {
	server.mutex.Lock()
	httpServer := server.httpServer
	server.mutex.Unlock()

	if httpServer != nil {
		httpServer.Shutdown(ctx)
	}
}
