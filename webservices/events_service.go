package webservices

import (
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	"github.com/hocman2/funmap/viewer"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
)

const (
	eventBufferSize = 64
	writeTimeout    = 10 * time.Second
)

// EventsService streams the session build events over a websocket, one JSON message per event
type EventsService struct {
	logger   *logpkg.Logger
	session  *viewer.Session
	upgrader websocket.Upgrader
	chi.Router
}

func NewEventsService(logger *logpkg.Logger, session *viewer.Session) *EventsService {
	es := &EventsService{
		logger:  logger,
		session: session,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		Router: chi.NewRouter(),
	}

	es.Get("/", es.handleGet)

	return es
}

func (es *EventsService) handleGet(w http.ResponseWriter, r *http.Request) {
	conn, err := es.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already answered the request
		es.logger.Warn("events service: failed to upgrade to websocket: %s", err)
		return
	}
	defer conn.Close()

	eventChan := make(chan viewer.Event, eventBufferSize)
	unsubscribe := es.session.Subscribe(func(event viewer.Event) {
		select {
		case eventChan <- event:
		default:
			// slow client, the event is dropped rather than stalling the frame loop
		}
	})
	defer unsubscribe()

	err = writeEvent(conn, es.snapshot())
	if err != nil {
		es.logger.Warn("events service: failed to write snapshot: %s", err)
		return
	}

	// the server read timeout does not apply to a long lived stream
	err = conn.SetReadDeadline(time.Time{})
	if err != nil {
		es.logger.Warn("events service: %s", errorsx.Wrap(err))
		return
	}

	closedChan := make(chan struct{})
	go func() {
		defer close(closedChan)
		for {
			// incoming messages are ignored, reading is only to notice the client going away
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closedChan:
			return
		case <-r.Context().Done():
			return
		case event := <-eventChan:
			err = writeEvent(conn, event)
			if err != nil {
				es.logger.Warn("events service: failed to write event: %s", err)
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, event viewer.Event) errorsx.Error {
	err := conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err != nil {
		return errorsx.Wrap(err)
	}

	err = conn.WriteJSON(event)
	if err != nil {
		return errorsx.Wrap(err)
	}

	return nil
}

func (es *EventsService) snapshot() viewer.Event {
	var ids []string
	for _, c := range es.session.WorkingSet().Chunks() {
		ids = append(ids, c.ID())
	}

	return viewer.Event{
		Type:     viewer.EventTypeSnapshot,
		ChunkIDs: ids,
		Time:     time.Now(),
	}
}
