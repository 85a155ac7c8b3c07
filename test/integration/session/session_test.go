// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package session_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/holoclient/internal/conn"
	"github.com/holomush/holoclient/internal/identity"
	"github.com/holomush/holoclient/internal/session"
)

// client is one running session wired to the fakes.
type client struct {
	ctx     context.Context
	cancel  context.CancelFunc
	manager *conn.Manager
	machine *session.Machine
}

func startClient(game *gameServer, ids *identityServer, opts session.Options) *client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())

	manager := conn.NewManager(conn.NewWebsocketTransport(game.wsURL(), nil), conn.WithLogger(logger))
	provider, err := identity.NewHTTPProvider(identity.HTTPConfig{
		BaseURL: ids.BaseURL(),
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
		Logger:  logger,
	})
	Expect(err).NotTo(HaveOccurred())

	opts.Logger = logger
	machine, err := session.NewMachine(manager, provider, opts)
	Expect(err).NotTo(HaveOccurred())

	go func() { _ = machine.Run(ctx) }()
	Expect(manager.Connect(ctx)).To(Succeed())

	c := &client{ctx: ctx, cancel: cancel, manager: manager, machine: machine}
	Eventually(c.state).Should(Equal(session.StateIdle))
	Eventually(func() bool { return c.machine.Snapshot().Connected }).Should(BeTrue())
	return c
}

func (c *client) stop() {
	c.cancel()
	_ = c.manager.Disconnect()
	Eventually(c.machine.Done()).Should(BeClosed())
}

func (c *client) state() session.State {
	return c.machine.Snapshot().State
}

func (c *client) lines() []string {
	return c.machine.Log().Entries()
}

// enter submits each line and waits for the prompt that follows it.
func (c *client) enter(lines ...string) {
	for _, line := range lines {
		before := c.machine.Log().Len()
		c.machine.Submit(line)
		Eventually(func() int { return c.machine.Log().Len() }).Should(BeNumerically(">", before))
	}
}

func (c *client) register(email, secret, name, clan string) {
	c.enter("register", email, secret, name, clan)
}

func (c *client) login(email, secret string) {
	c.enter("login", email)
	c.machine.Submit(secret)
}

var _ = Describe("Client session", func() {
	var (
		game *gameServer
		ids  *identityServer
		c    *client
	)

	BeforeEach(func() {
		game = newGameServer()
		ids = newIdentityServer()
		c = startClient(game, ids, session.Options{LoginAck: session.LoginAckEvent})
	})

	AfterEach(func() {
		c.stop()
		game.Close()
		ids.Close()
	})

	Describe("registration", func() {
		It("creates the account and completes registration with the server", func() {
			c.register("ada@example.com", "s3cret!", "Ada", "Red Bird")

			Eventually(c.lines).Should(ContainElement("Welcome, Ada of the Red Bird clan."))
			Expect(c.state()).To(Equal(session.StateIdle))
			Expect(c.lines()).To(ContainElements(
				session.MsgProcessingRegistration,
				session.MsgCreatingAccount,
			))
			Expect(game.receivedEvents()).To(Equal([]string{
				session.EventInitiateRegistration,
				session.EventCompleteRegistration,
			}))

			var complete session.CompleteRegistration
			data := game.receivedData(session.EventCompleteRegistration)
			Expect(data).To(HaveLen(1))
			Expect(json.Unmarshal(data[0], &complete)).To(Succeed())
			Expect(string(complete.Token)).To(Equal(tokenFor("ada@example.com")))
			Expect(complete.CharacterName).To(Equal("Ada"))
			Expect(complete.Clan).To(Equal(session.ClanRedBird))
		})

		It("reports a server rejection and returns to idle", func() {
			c.register("bob@example.com", "hunter22", "Taken", "Green Frog")

			Eventually(c.lines).Should(ContainElement("Registration failed: Character name is taken."))
			Expect(c.lines()).To(ContainElement(session.MsgTryRegisteringAgain))
			Expect(c.state()).To(Equal(session.StateIdle))
			Expect(game.receivedEvents()).NotTo(ContainElement(session.EventCompleteRegistration))
		})

		It("reports an existing account from the identity provider", func() {
			c.register("cy@example.com", "pw-one", "Cy", "Blue Flower")
			Eventually(c.lines).Should(ContainElement("Welcome, Cy of the Blue Flower clan."))

			c.register("cy@example.com", "pw-two", "Cyrus", "Yellow Dog")

			Eventually(c.lines).Should(ContainElement(ContainSubstring("already exists")))
			Eventually(c.state).Should(Equal(session.StateIdle))
			Expect(game.receivedData(session.EventCompleteRegistration)).To(HaveLen(1))
		})

		It("re-prompts for an unknown clan", func() {
			c.enter("register", "dee@example.com", "pw", "Dee", "Purple Cow")

			Expect(c.lines()).To(ContainElements(session.MsgInvalidClan, session.PromptClan))
			Expect(c.state()).To(Equal(session.StateRegisteringClan))
			Expect(game.receivedEvents()).To(BeEmpty())
		})
	})

	Describe("login", func() {
		BeforeEach(func() {
			c.register("eve@example.com", "correct horse", "Eve", "Yellow Dog")
			Eventually(c.lines).Should(ContainElement("Welcome, Eve of the Yellow Dog clan."))
		})

		It("authenticates and dispatches commands", func() {
			c.login("eve@example.com", "correct horse")

			Eventually(c.state).Should(Equal(session.StateAuthenticated))
			Expect(c.machine.Snapshot().LoggedIn).To(BeTrue())
			Expect(c.lines()).To(ContainElement(session.MsgLoginSuccess))

			c.machine.Submit("look")
			Eventually(c.lines).Should(ContainElement("You said: look"))

			var cmd session.Command
			data := game.receivedData(session.EventCommand)
			Expect(data).To(HaveLen(1))
			Expect(json.Unmarshal(data[0], &cmd)).To(Succeed())
			Expect(cmd.Text).To(Equal("look"))
		})

		It("rejects a wrong password without contacting the game server", func() {
			c.login("eve@example.com", "wrong")

			Eventually(c.lines).Should(ContainElement(ContainSubstring("Invalid email or password")))
			Eventually(c.state).Should(Equal(session.StateIdle))
			Expect(game.receivedEvents()).NotTo(ContainElement(session.EventLogin))
		})

		It("surfaces the server's login rejection", func() {
			ids.addAccount("fay@example.com", "pw")

			c.login("fay@example.com", "pw")

			Eventually(c.lines).Should(ContainElement("Login failed: no character for this account"))
			Expect(c.state()).To(Equal(session.StateIdle))
			Expect(c.machine.Snapshot().LoggedIn).To(BeFalse())
		})

		It("logs out when the server reports another session", func() {
			c.login("eve@example.com", "correct horse")
			Eventually(c.state).Should(Equal(session.StateAuthenticated))

			game.broadcast(c.ctx, session.ForcedLogoutNotice)

			Eventually(c.state).Should(Equal(session.StateIdle))
			Expect(c.machine.Snapshot().LoggedIn).To(BeFalse())
			Expect(c.lines()).To(ContainElements(session.ForcedLogoutNotice, session.MsgLoggedOut))

			c.machine.Submit("look")
			Eventually(c.lines).Should(ContainElement(session.MsgMustAuthenticate))
			Expect(game.receivedEvents()).NotTo(ContainElement(session.EventCommand))
		})

		It("drops to idle when the server goes away", func() {
			c.login("eve@example.com", "correct horse")
			Eventually(c.state).Should(Equal(session.StateAuthenticated))

			game.dropAll()

			Eventually(c.state).Should(Equal(session.StateIdle))
			Eventually(c.lines).Should(ContainElement(session.MsgDisconnected))
			Expect(c.machine.Snapshot().Connected).To(BeFalse())

			c.enter("login", "eve@example.com")
			c.machine.Submit("correct horse")
			Eventually(c.lines).Should(ContainElement(session.MsgNotConnected))
			Eventually(c.state).Should(Equal(session.StateIdle))
		})
	})
})

var _ = Describe("Client session with window acknowledgment", func() {
	var (
		game *gameServer
		ids  *identityServer
		c    *client
	)

	BeforeEach(func() {
		game = newGameServer()
		ids = newIdentityServer()
		c = startClient(game, ids, session.Options{
			LoginAck:    session.LoginAckWindow,
			LoginWindow: 200 * time.Millisecond,
		})
		c.register("gus@example.com", "pw", "Gus", "Green Frog")
		Eventually(c.lines).Should(ContainElement("Welcome, Gus of the Green Frog clan."))
	})

	AfterEach(func() {
		c.stop()
		game.Close()
		ids.Close()
	})

	It("accepts the login once the window passes", func() {
		c.login("gus@example.com", "pw")

		Eventually(c.state).Should(Equal(session.StateAuthenticated))
		Expect(c.lines()).To(ContainElement(session.MsgLoginSuccess))
	})
})
