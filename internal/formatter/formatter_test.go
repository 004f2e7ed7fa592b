package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func boltCard() *Card {
	return &Card{
		ID:          "abc-123",
		Name:        "Lightning Bolt",
		ManaCost:    "{R}",
		TypeLine:    "Instant",
		OracleText:  "Lightning Bolt deals 3 damage to any target.",
		ImageURIs:   map[string]string{"small": "https://img/small.jpg", "normal": "https://img/normal.jpg"},
		ScryfallURI: "https://scryfall.com/card/lea/161",
		Set:         "lea",
		SetName:     "Limited Edition Alpha",
		Rarity:      "common",
	}
}

func TestDefaultFormat(t *testing.T) {
	text, image := Default(boltCard())

	assert.Contains(t, text, "Lightning Bolt {R}")
	assert.Contains(t, text, "Instant")
	assert.Contains(t, text, "Lightning Bolt deals 3 damage to any target.")
	assert.Contains(t, text, "Limited Edition Alpha (LEA) - Common")
	assert.Contains(t, text, "https://scryfall.com/card/lea/161")
	assert.Equal(t, "https://img/small.jpg", image)
}

func TestDefaultFormatCreatureShowsPT(t *testing.T) {
	card := boltCard()
	card.Name = "Grizzly Bears"
	card.TypeLine = "Creature - Bear"
	card.Power = "2"
	card.Toughness = "2"

	text, _ := Default(card)
	assert.Contains(t, text, "Creature - Bear (2/2)")
}

func TestDefaultFormatPlaneswalkerShowsLoyalty(t *testing.T) {
	card := boltCard()
	card.TypeLine = "Legendary Planeswalker - Jace"
	card.Loyalty = "3"

	text, _ := Default(card)
	assert.Contains(t, text, "[Loyalty: 3]")
}

func TestDefaultFormatDoubleFacedCard(t *testing.T) {
	card := boltCard()
	card.Name = "Delver of Secrets // Insectile Aberration"
	card.OracleText = ""
	card.ImageURIs = nil
	card.CardFaces = []CardFace{
		{
			Name:       "Delver of Secrets",
			OracleText: "At the beginning of your upkeep, look at the top card of your library.",
			ImageURIs:  map[string]string{"small": "https://img/front-small.jpg"},
		},
		{
			Name:       "Insectile Aberration",
			OracleText: "Flying",
		},
	}

	text, image := Default(card)
	assert.Contains(t, text, "[Delver of Secrets]")
	assert.Contains(t, text, "[Insectile Aberration]")
	assert.Contains(t, text, "\n//\n")
	assert.Equal(t, "https://img/front-small.jpg", image, "falls back to the front face image")
}

func TestImageFormat(t *testing.T) {
	text, image := Image(boltCard())
	assert.Equal(t, "Lightning Bolt", text)
	assert.Equal(t, "https://img/normal.jpg", image)
}

func TestImageFormatNoImages(t *testing.T) {
	card := boltCard()
	card.ImageURIs = nil

	_, image := Image(card)
	assert.Empty(t, image)
}

func TestRulingsFormat(t *testing.T) {
	rulings := []Ruling{
		{PublishedAt: "2004-10-04", Comment: "The damage is dealt on resolution."},
		{PublishedAt: "2021-03-19", Comment: "Any target means any target."},
	}

	text := Rulings(boltCard(), rulings)
	assert.Contains(t, text, "Rulings for Lightning Bolt:")
	assert.Contains(t, text, "[2004-10-04] The damage is dealt on resolution.")
	assert.Contains(t, text, "[2021-03-19] Any target means any target.")
}

func TestRulingsFormatEmpty(t *testing.T) {
	text := Rulings(boltCard(), nil)
	assert.Equal(t, "Lightning Bolt\nNo rulings available.", text)
}

func TestLegalityFormatGroupsAndSorts(t *testing.T) {
	card := boltCard()
	card.Legalities = map[string]string{
		"vintage":   "legal",
		"legacy":    "legal",
		"modern":    "legal",
		"standard":  "not_legal",
		"oldschool": "restricted",
	}

	text := Legality(card)
	assert.Contains(t, text, "Legality: Lightning Bolt")
	assert.Contains(t, text, "Legal: Legacy, Modern, Vintage")
	assert.Contains(t, text, "Restricted: Oldschool")
	assert.Contains(t, text, "Not legal: Standard")
}

func TestLegalityFormatNoData(t *testing.T) {
	text := Legality(boltCard())
	assert.Equal(t, "Lightning Bolt\nNo legality data available.", text)
}

func TestPriceFormat(t *testing.T) {
	card := boltCard()
	card.Prices = map[string]*string{
		"usd":      strPtr("1.99"),
		"usd_foil": nil,
		"eur":      strPtr("2.50"),
	}

	text := Price(card)
	assert.Contains(t, text, "Prices: Lightning Bolt (Limited Edition Alpha LEA)")
	assert.Contains(t, text, "USD:      $1.99")
	assert.Contains(t, text, "USD Foil: N/A")
	assert.Contains(t, text, "EUR:      €2.50")
	assert.Contains(t, text, "TIX:      N/A")
}

func TestParseCardRejectsGarbage(t *testing.T) {
	_, err := ParseCard([]byte("not json"))
	assert.Error(t, err)
}

func TestParseRulings(t *testing.T) {
	rulings, err := ParseRulings([]byte(`{"object":"list","data":[{"published_at":"2004-10-04","comment":"Sure."}]}`))
	require.NoError(t, err)
	require.Len(t, rulings, 1)
	assert.Equal(t, "2004-10-04", rulings[0].PublishedAt)
	assert.Equal(t, "Sure.", rulings[0].Comment)
}
