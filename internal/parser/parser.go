// Package parser extracts card queries from message text.
//
// Supported syntax (mirroring the official Scryfall chat bots):
//
//	[[Card Name]]           default: oracle text + mana cost + thumbnail
//	[[!Card Name]]          full card image
//	[[?Card Name]]          rulings
//	[[#Card Name]]          format legalities
//	[[$Card Name]]          prices
//	[[Card Name|SET]]       specific set printing
//	[[Card Name|SET|NUM]]   specific set + collector number
//	.Card Name              whole-message shorthand
package parser

import (
	"regexp"
	"strings"

	"github.com/jimsug/mtg-signal-bot/internal/core"
)

var cardPattern = regexp.MustCompile(`\[\[([^\[\]]+?)\]\]`)

// ParseQueries extracts card queries from a message body, in source order
func ParseQueries(text string) []core.CardQuery {
	// Dot-prefix: entire message is a single query
	stripped := strings.TrimSpace(text)
	if strings.HasPrefix(stripped, ".") && len(stripped) > 1 {
		return []core.CardQuery{parseSingle(strings.TrimSpace(stripped[1:]))}
	}

	var queries []core.CardQuery
	for _, match := range cardPattern.FindAllStringSubmatch(text, -1) {
		raw := strings.TrimSpace(match[1])
		if raw == "" {
			continue
		}
		queries = append(queries, parseSingle(raw))
	}
	return queries
}

func parseSingle(raw string) core.CardQuery {
	flag := core.FlagNone
	namePart := raw

	switch {
	case strings.HasPrefix(raw, core.FlagImage):
		flag = core.FlagImage
	case strings.HasPrefix(raw, core.FlagRulings):
		flag = core.FlagRulings
	case strings.HasPrefix(raw, core.FlagLegality):
		flag = core.FlagLegality
	case strings.HasPrefix(raw, core.FlagPrice):
		flag = core.FlagPrice
	}
	if flag != core.FlagNone {
		namePart = strings.TrimSpace(raw[1:])
	}

	// Split off set code and optional collector number
	parts := strings.Split(namePart, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	q := core.CardQuery{
		Raw:  raw,
		Flag: flag,
		Name: parts[0],
	}
	if len(parts) > 1 {
		q.SetCode = strings.ToUpper(parts[1])
	}
	if len(parts) > 2 {
		q.CollectorNumber = parts[2]
	}
	return q
}
