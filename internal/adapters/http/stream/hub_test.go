package stream_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/vigil/internal/adapters/http/stream"
	"github.com/okian/vigil/internal/domain/model"
)

type received struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Payload   json.RawMessage `json:"payload"`
}

func dial(srv *httptest.Server, session string) (*websocket.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream?session_id=" + session
	return websocket.DefaultDialer.Dial(url, nil)
}

func read(conn *websocket.Conn) (received, error) {
	var m received
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	err := conn.ReadJSON(&m)
	return m, err
}

func waitClients(h *stream.Hub, n int) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.Clients() == n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestHub(t *testing.T) {
	Convey("Given a hub behind an HTTP server", t, func() {
		hub := stream.NewHub(stream.WithSessionCheck(func(id string) bool { return id != "missing" }))
		mux := http.NewServeMux()
		mux.Handle("/stream", hub)
		srv := httptest.NewServer(mux)
		defer srv.Close()
		defer hub.Close()

		Convey("When a client subscribes to a session", func() {
			conn, _, err := dial(srv, "s1")
			So(err, ShouldBeNil)
			defer conn.Close()

			hello, err := read(conn)
			So(err, ShouldBeNil)
			So(hello.Type, ShouldEqual, stream.TypeHello)
			So(waitClients(hub, 1), ShouldBeTrue)

			Convey("Then decisions of that session are delivered", func() {
				hub.Publish(&model.Decision{SessionID: "other", Score: 99})
				hub.Publish(&model.Decision{SessionID: "s1", Seq: 7, Score: 12, Action: model.ActionBeep})

				msg, err := read(conn)
				So(err, ShouldBeNil)
				So(msg.Type, ShouldEqual, stream.TypeDecision)
				So(msg.SessionID, ShouldEqual, "s1")

				var d model.Decision
				So(json.Unmarshal(msg.Payload, &d), ShouldBeNil)
				So(d.Seq, ShouldEqual, 7)
				So(d.Score, ShouldEqual, 12)
				So(d.Action, ShouldEqual, model.ActionBeep)
			})

			Convey("Then ending the session notifies and disconnects the client", func() {
				hub.CloseSession("s1", "deleted")

				msg, err := read(conn)
				So(err, ShouldBeNil)
				So(msg.Type, ShouldEqual, stream.TypeSessionEnded)
				So(string(msg.Payload), ShouldContainSubstring, "deleted")

				_, err = read(conn)
				So(err, ShouldNotBeNil)
				So(hub.Clients(), ShouldEqual, 0)
			})

			Convey("Then closing the connection unregisters the client", func() {
				So(conn.Close(), ShouldBeNil)
				So(waitClients(hub, 0), ShouldBeTrue)
			})
		})

		Convey("When the session id is missing", func() {
			_, resp, err := dial(srv, "")

			Convey("Then the upgrade is refused with 400", func() {
				So(err, ShouldNotBeNil)
				So(resp, ShouldNotBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the session does not exist", func() {
			_, resp, err := dial(srv, "missing")

			Convey("Then the upgrade is refused with 404", func() {
				So(err, ShouldNotBeNil)
				So(resp, ShouldNotBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestHub_SlowClientDoesNotBlock(t *testing.T) {
	Convey("Given a client with a one message buffer that never reads", t, func() {
		hub := stream.NewHub(stream.WithBuffer(1))
		srv := httptest.NewServer(hub)
		defer srv.Close()
		defer hub.Close()

		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?session_id=s1"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		So(err, ShouldBeNil)
		defer conn.Close()
		So(waitClients(hub, 1), ShouldBeTrue)

		Convey("When many decisions are published", func() {
			done := make(chan struct{})
			go func() {
				for i := 0; i < 10_000; i++ {
					hub.Publish(&model.Decision{SessionID: "s1", Seq: uint64(i)})
				}
				close(done)
			}()

			Convey("Then publishing completes without waiting on the client", func() {
				select {
				case <-done:
				case <-time.After(5 * time.Second):
					So("publisher blocked", ShouldBeEmpty)
				}
			})
		})
	})
}
