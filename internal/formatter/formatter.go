// Package formatter renders card data as plain text for Signal, which
// has no markdown or embeds. Mana symbols stay in Scryfall's {X}
// notation. Card payloads are decoded defensively: every field is
// optional.
package formatter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CardFace is one face of a double-faced card
type CardFace struct {
	Name       string            `json:"name"`
	OracleText string            `json:"oracle_text"`
	ImageURIs  map[string]string `json:"image_uris"`
}

// Card is the subset of the card payload the formatters read
type Card struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	ManaCost    string             `json:"mana_cost"`
	TypeLine    string             `json:"type_line"`
	OracleText  string             `json:"oracle_text"`
	Power       string             `json:"power"`
	Toughness   string             `json:"toughness"`
	Loyalty     string             `json:"loyalty"`
	Defense     string             `json:"defense"`
	CardFaces   []CardFace         `json:"card_faces"`
	ImageURIs   map[string]string  `json:"image_uris"`
	ScryfallURI string             `json:"scryfall_uri"`
	Set         string             `json:"set"`
	SetName     string             `json:"set_name"`
	Rarity      string             `json:"rarity"`
	Legalities  map[string]string  `json:"legalities"`
	Prices      map[string]*string `json:"prices"`
}

// Ruling is one Oracle ruling
type Ruling struct {
	PublishedAt string `json:"published_at"`
	Comment     string `json:"comment"`
}

type rulingsPayload struct {
	Data []Ruling `json:"data"`
}

// ParseCard decodes a raw card payload
func ParseCard(payload []byte) (*Card, error) {
	var card Card
	if err := json.Unmarshal(payload, &card); err != nil {
		return nil, fmt.Errorf("failed to decode card payload: %w", err)
	}
	return &card, nil
}

// ParseRulings decodes a raw rulings payload
func ParseRulings(payload []byte) ([]Ruling, error) {
	var p rulingsPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode rulings payload: %w", err)
	}
	return p.Data, nil
}

// Default renders name, mana cost, type line, oracle text, set info and
// a Scryfall link. Returns a thumbnail image URL to attach.
func Default(card *Card) (string, string) {
	header := strings.TrimSpace(card.Name + " " + card.ManaCost)
	lines := []string{
		header,
		typeAndPT(card),
		"",
		oracle(card),
		"",
		fmt.Sprintf("%s (%s) - %s", card.SetName, strings.ToUpper(card.Set), capitalize(card.Rarity)),
		card.ScryfallURI,
	}
	return strings.Join(lines, "\n"), imageURL(card, "small")
}

// Image renders just the card name with a full-size image
func Image(card *Card) (string, string) {
	return card.Name, imageURL(card, "normal")
}

// Rulings renders Oracle rulings for a card
func Rulings(card *Card, rulings []Ruling) string {
	if len(rulings) == 0 {
		return card.Name + "\nNo rulings available."
	}

	lines := []string{fmt.Sprintf("Rulings for %s:", card.Name), ""}
	for _, r := range rulings {
		lines = append(lines, fmt.Sprintf("[%s] %s", r.PublishedAt, strings.TrimSpace(r.Comment)), "")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Legality renders a legality table grouped by status
func Legality(card *Card) string {
	if len(card.Legalities) == 0 {
		return card.Name + "\nNo legality data available."
	}

	labels := []struct{ status, label string }{
		{"legal", "Legal"},
		{"restricted", "Restricted"},
		{"banned", "Banned"},
		{"not_legal", "Not legal"},
	}
	titleCaser := cases.Title(language.Und)

	groups := make(map[string][]string)
	for format, status := range card.Legalities {
		groups[status] = append(groups[status], titleCaser.String(strings.ReplaceAll(format, "_", " ")))
	}

	lines := []string{"Legality: " + card.Name, ""}
	for _, l := range labels {
		formats := groups[l.status]
		if len(formats) == 0 {
			continue
		}
		sort.Strings(formats)
		lines = append(lines, fmt.Sprintf("%s: %s", l.label, strings.Join(formats, ", ")))
	}
	return strings.Join(lines, "\n")
}

// Price renders price data for a card's printing
func Price(card *Card) string {
	lines := []string{
		fmt.Sprintf("Prices: %s (%s %s)", card.Name, card.SetName, strings.ToUpper(card.Set)),
		"",
		"USD:      " + price(card.Prices["usd"], "$"),
		"USD Foil: " + price(card.Prices["usd_foil"], "$"),
		"EUR:      " + price(card.Prices["eur"], "€"),
		"TIX:      " + price(card.Prices["tix"], ""),
		"",
		card.ScryfallURI,
	}
	return strings.Join(lines, "\n")
}

// typeAndPT returns the type line plus P/T, loyalty or defense
func typeAndPT(card *Card) string {
	line := card.TypeLine
	switch {
	case card.Power != "" && card.Toughness != "":
		line += fmt.Sprintf(" (%s/%s)", card.Power, card.Toughness)
	case card.Loyalty != "":
		line += fmt.Sprintf(" [Loyalty: %s]", card.Loyalty)
	case card.Defense != "":
		line += fmt.Sprintf(" [Defense: %s]", card.Defense)
	}
	return line
}

// oracle returns oracle text, joining both faces of a DFC with //
func oracle(card *Card) string {
	if len(card.CardFaces) > 0 {
		var parts []string
		for _, face := range card.CardFaces {
			text := strings.TrimSpace(face.OracleText)
			if text != "" {
				parts = append(parts, fmt.Sprintf("[%s]\n%s", face.Name, text))
			}
		}
		return strings.Join(parts, "\n//\n")
	}
	return strings.TrimSpace(card.OracleText)
}

// imageURL returns an image of the given size, falling back to the
// first face for DFCs. Empty when the card has no images.
func imageURL(card *Card, size string) string {
	images := card.ImageURIs
	if len(images) == 0 && len(card.CardFaces) > 0 {
		images = card.CardFaces[0].ImageURIs
	}
	return images[size]
}

func price(val *string, symbol string) string {
	if val == nil || *val == "" {
		return "N/A"
	}
	return symbol + *val
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
