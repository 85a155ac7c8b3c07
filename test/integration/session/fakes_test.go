// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/holomush/holoclient/internal/conn"
	"github.com/holomush/holoclient/internal/session"
)

// gameServer is a minimal game server speaking the named-event protocol.
type gameServer struct {
	*httptest.Server

	mu         sync.Mutex
	conns      []*websocket.Conn
	characters map[string]bool // character names taken
	tokens     map[string]bool // tokens bound to a character
	received   []conn.Envelope
}

func newGameServer() *gameServer {
	g := &gameServer{
		characters: map[string]bool{"Taken": true},
		tokens:     map[string]bool{},
	}
	g.Server = httptest.NewServer(http.HandlerFunc(g.serve))
	return g
}

// wsURL returns the websocket endpoint.
func (g *gameServer) wsURL() string {
	return "ws" + strings.TrimPrefix(g.Server.URL, "http") + "/ws"
}

func (g *gameServer) serve(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	g.mu.Lock()
	g.conns = append(g.conns, c)
	g.mu.Unlock()

	ctx := r.Context()
	for {
		var env conn.Envelope
		if err := wsjson.Read(ctx, c, &env); err != nil {
			return
		}
		g.mu.Lock()
		g.received = append(g.received, env)
		g.mu.Unlock()
		g.handle(ctx, c, env)
	}
}

func (g *gameServer) handle(ctx context.Context, c *websocket.Conn, env conn.Envelope) {
	switch env.Event {
	case session.EventInitiateRegistration:
		var p session.InitiateRegistration
		_ = json.Unmarshal(env.Data, &p)
		g.mu.Lock()
		taken := g.characters[p.CharacterName]
		g.mu.Unlock()
		if taken {
			g.send(ctx, c, session.EventRegistrationError, map[string]string{"message": "Character name is taken."})
			return
		}
		g.send(ctx, c, session.EventCreateUser, nil)
	case session.EventCompleteRegistration:
		var p session.CompleteRegistration
		_ = json.Unmarshal(env.Data, &p)
		g.mu.Lock()
		g.characters[p.CharacterName] = true
		g.tokens[string(p.Token)] = true
		g.mu.Unlock()
		g.send(ctx, c, session.EventRegistrationComplete,
			map[string]string{"message": "Welcome, " + p.CharacterName + " of the " + string(p.Clan) + " clan."})
	case session.EventLogin:
		var p session.Login
		_ = json.Unmarshal(env.Data, &p)
		g.mu.Lock()
		known := g.tokens[string(p.Token)]
		g.mu.Unlock()
		if !known {
			g.send(ctx, c, session.EventLoginResult, session.LoginResult{Reason: "no character for this account"})
			return
		}
		g.send(ctx, c, session.EventLoginResult, session.LoginResult{OK: true})
	case session.EventCommand:
		var p session.Command
		_ = json.Unmarshal(env.Data, &p)
		g.send(ctx, c, session.EventMessage, "You said: "+p.Text)
	}
}

func (g *gameServer) send(ctx context.Context, c *websocket.Conn, event string, payload any) {
	env := conn.Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		env.Data = data
	}
	_ = wsjson.Write(ctx, c, env)
}

// broadcast pushes a message event to every connected client.
func (g *gameServer) broadcast(ctx context.Context, text string) {
	g.mu.Lock()
	conns := append([]*websocket.Conn(nil), g.conns...)
	g.mu.Unlock()
	for _, c := range conns {
		g.send(ctx, c, session.EventMessage, map[string]string{"text": text})
	}
}

// dropAll closes every client connection from the server side.
func (g *gameServer) dropAll() {
	g.mu.Lock()
	conns := g.conns
	g.conns = nil
	g.mu.Unlock()
	for _, c := range conns {
		_ = c.Close(websocket.StatusGoingAway, "server restart")
	}
}

func (g *gameServer) receivedEvents() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.received))
	for _, env := range g.received {
		out = append(out, env.Event)
	}
	return out
}

func (g *gameServer) receivedData(event string) []json.RawMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []json.RawMessage
	for _, env := range g.received {
		if env.Event == event {
			out = append(out, env.Data)
		}
	}
	return out
}

// identityServer fakes an identity-toolkit style REST API.
type identityServer struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]string
}

func newIdentityServer() *identityServer {
	s := &identityServer{accounts: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/accounts:signUp", s.signUp)
	mux.HandleFunc("POST /v1/accounts:signInWithPassword", s.signIn)
	s.Server = httptest.NewServer(mux)
	return s
}

// BaseURL returns the API root.
func (s *identityServer) BaseURL() string {
	return s.Server.URL + "/v1"
}

// addAccount creates an identity account with no game character.
func (s *identityServer) addAccount(email, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[email] = secret
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *identityServer) signUp(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeIdentityError(w, "INVALID_EMAIL")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[c.Email]; ok {
		writeIdentityError(w, "EMAIL_EXISTS")
		return
	}
	s.accounts[c.Email] = c.Password
	writeToken(w, c.Email)
}

func (s *identityServer) signIn(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeIdentityError(w, "INVALID_EMAIL")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	secret, ok := s.accounts[c.Email]
	switch {
	case !ok:
		writeIdentityError(w, "EMAIL_NOT_FOUND")
	case secret != c.Password:
		writeIdentityError(w, "INVALID_PASSWORD")
	default:
		writeToken(w, c.Email)
	}
}

func tokenFor(email string) string {
	return "token-" + email
}

func writeToken(w http.ResponseWriter, email string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"idToken": tokenFor(email)})
}

func writeIdentityError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": http.StatusBadRequest, "message": message},
	})
}
