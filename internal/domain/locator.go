package domain

import "strings"

const locatorDelimiter = "_"

// Locator is a FEN made safe for a URL fragment.
type Locator string

func EncodeLocator(fen string) Locator {
	return Locator(strings.ReplaceAll(fen, " ", locatorDelimiter))
}

// DecodeLocator accepts both "#fen" and bare fragment text.
func DecodeLocator(text string) string {
	text = strings.TrimPrefix(strings.TrimSpace(text), "#")
	return strings.ReplaceAll(text, locatorDelimiter, " ")
}

func (l Locator) FEN() string { return DecodeLocator(string(l)) }

// HistoryFrame is one navigation entry per ply.
type HistoryFrame struct {
	Locator Locator `json:"locator"`
	PGN     string  `json:"pgn"`
}
