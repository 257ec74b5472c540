package main

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/websocket"
)

type wsHandler struct {
	h        *hub
	upgrader *websocket.Upgrader
}

// newWsHandler builds the websocket endpoint. With an empty origin any
// Origin header is accepted, because game clients are embedded on
// arbitrary hosts. With a configured origin, browser requests must
// present exactly that scheme://host[:port]; requests without an Origin
// header (non-browser clients) always pass.
func newWsHandler(h *hub, origin string) wsHandler {
	upgrader := &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(origin),
	}
	return wsHandler{h: h, upgrader: upgrader}
}

func checkOrigin(origin string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		o := r.Header.Get("Origin")
		if o == "" || origin == "" {
			return true
		}
		u, err := url.Parse(o)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Scheme+"://"+u.Host, origin)
	}
}

func (wsh wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !validateRequest(w, r) {
		return
	}
	channelID, playerID := splitIdentity(r.URL.Path)
	ws, err := wsh.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsh.h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	c := newConnection(&websocketInteractor{ws: ws}, wsh.h, channelID, playerID)
	c.run()
}

// splitIdentity pops the last two path segments, lower-cased: the final
// segment is the player id, the one before it the channel id. Earlier
// segments are ignored, and a path with a single segment yields the
// empty channel id. "/game1/host" is player "host" in channel "game1".
func splitIdentity(path string) (channelID, playerID string) {
	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	playerID = strings.ToLower(segs[len(segs)-1])
	if len(segs) > 1 {
		channelID = strings.ToLower(segs[len(segs)-2])
	}
	return channelID, playerID
}

// injectChannel resolves a POST path to a channel id the same way the
// websocket derivation does: the last path segment lower-cased,
// ignoring any trailing slashes.
func injectChannel(path string) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	return strings.ToLower(segs[len(segs)-1])
}

type getHandler struct {
	h    *hub
	addr string
}

func (gh getHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !validateRequest(w, r) {
		return
	}
	webTemplate.Execute(w, templateArgs{gh.addr, r.URL.Path})
}

type postHandler struct {
	h *hub
}

func (ph postHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !validateRequest(w, r) {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		sendBadRequestError(w, "Unable to read POST body.")
		return
	}
	ph.h.queue <- command{cmd: INJECT, path: injectChannel(r.URL.Path), text: body}
	w.Write([]byte("OK\n"))
}

type statsHandler struct {
	h *hub
}

func (sh statsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sh.h.snapshot())
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok\n"))
}

func validateRequest(w http.ResponseWriter, r *http.Request) bool {
	if !utf8.ValidString(r.URL.Path) {
		sendBadRequestError(w, "Path must be valid Unicode (UTF-8).")
		return false
	}
	pathLen := utf8.RuneCountInString(r.URL.Path)
	if !(pathLenMin <= pathLen && pathLen <= pathLenMax) {
		sendBadRequestError(w, fmt.Sprintf(
			"Path length must be %d-%d Unicode characters (UTF-8).",
			pathLenMin, pathLenMax))
		return false
	}
	return true
}

func sendBadRequestError(w http.ResponseWriter, str string) {
	http.Error(w,
		fmt.Sprintf("Error: bad request. %s", str),
		http.StatusBadRequest)
}

type templateArgs struct {
	Addr, Path string
}

var webTemplate = template.Must(template.New("webTemplate").Parse(`
<html>
<head>
<title>relayhub {{.Path}}</title>
<script type="text/javascript" src="https://ajax.googleapis.com/ajax/libs/jquery/1.4.2/jquery.min.js"></script>
<script type="text/javascript">
    $(function() {

    var conn;
    var msg = $("#msg");
    var log = $("#log");

    function appendLog(msg) {
        var d = log[0]
        var doScroll = d.scrollTop == d.scrollHeight - d.clientHeight;
        msg.appendTo(log)
        if (doScroll) {
            d.scrollTop = d.scrollHeight - d.clientHeight;
        }
    }

    $("#form").submit(function() {
        if (!conn) {
            return false;
        }
        if (!msg.val()) {
            return false;
        }
        conn.send(msg.val());
        msg.val("");
        return false
    });

    if (window["WebSocket"]) {
        conn = new WebSocket("ws://localhost{{.Addr}}{{.Path}}");
        conn.onclose = function(evt) {
            appendLog($("<div><b>Connection closed.</b></div>"))
        }
        conn.onmessage = function(evt) {
            appendLog($("<div/>").text(evt.data))
        }
        msg.focus();
    } else {
        appendLog($("<div><b>Your browser does not support WebSockets.</b></div>"))
    }
    });
</script>
<style type="text/css">
html {
    overflow: hidden;
}

body {
    overflow: hidden;
    padding: 0.5em;
    margin: 0;
    width: 100%;
    height: 100%;
    background: gray;
}

#log {
    background: white;
    margin: 0;
    padding: 0.5em 0.5em 0.5em 0.5em;
    position: absolute;
    top: 2.0em;
    left: 0.5em;
    right: 0.5em;
    bottom: 3em;
    overflow: auto;
}

#form {
    padding: 0 0.5em 0 0.5em;
    margin: 0;
    position: absolute;
    bottom: 0.5em;
    left: 0px;
    width: 100%;
    overflow: hidden;
}

</style>
</head>
<body>
<h3>Relay client for {{.Path}}</h3>
<div id="log"></div>
<form id="form">
    <input type="submit" value="Send" />
    <input type="text" id="msg" size="64"/>
</form>
</body>
</html>
`))
