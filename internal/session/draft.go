// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"log/slog"
	"strings"
)

// Clan is one of the four houses a new character joins.
type Clan string

// The closed set of clans. Matching is exact and case-sensitive.
const (
	ClanYellowDog  Clan = "Yellow Dog"
	ClanRedBird    Clan = "Red Bird"
	ClanGreenFrog  Clan = "Green Frog"
	ClanBlueFlower Clan = "Blue Flower"
)

// Clans lists every valid clan in prompt order.
var Clans = []Clan{ClanYellowDog, ClanRedBird, ClanGreenFrog, ClanBlueFlower}

// ParseClan returns the clan named exactly by s.
func ParseClan(s string) (Clan, error) {
	for _, c := range Clans {
		if string(c) == s {
			return c, nil
		}
	}
	return "", ErrInvalidClan(s)
}

func clanList() string {
	names := make([]string, len(Clans))
	for i, c := range Clans {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// RegistrationDraft accumulates registration input until the server settles
// the outcome.
type RegistrationDraft struct {
	Email         string
	Secret        string
	CharacterName string
	Clan          Clan
}

// LogValue keeps the secret out of logs.
func (d RegistrationDraft) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("email_set", d.Email != ""),
		slog.Bool("secret_set", d.Secret != ""),
		slog.String("character_name", d.CharacterName),
		slog.String("clan", string(d.Clan)),
	)
}

// LoginDraft accumulates login input until the login outcome is known.
type LoginDraft struct {
	Email  string
	Secret string
}

// LogValue keeps the secret out of logs.
func (d LoginDraft) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("email_set", d.Email != ""),
		slog.Bool("secret_set", d.Secret != ""),
	)
}
