package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"transfer_agents/models"
)

func TestFingerprint_NormalizesWhitespaceAndCase(t *testing.T) {
	a := models.TransferRecord{Player: "Test  Player", FromClub: "Arsenal", ToClub: "Chelsea", Type: models.DirectionArrival}
	b := models.TransferRecord{Player: " test player", FromClub: "ARSENAL", ToClub: "chelsea ", Type: models.DirectionArrival}
	assert.Equal(t, Fingerprint(&a), Fingerprint(&b))
}

func TestFingerprint_DirectionMatters(t *testing.T) {
	a := models.TransferRecord{Player: "P", FromClub: "A", ToClub: "B", Type: models.DirectionArrival}
	b := a
	b.Type = models.DirectionDeparture
	assert.NotEqual(t, Fingerprint(&a), Fingerprint(&b))
}

func TestDedupe_KeepsFirstInOrder(t *testing.T) {
	records := []models.TransferRecord{
		{Player: "One", FromClub: "A", ToClub: "B", Fee: "first", Type: models.DirectionArrival},
		{Player: "Two", FromClub: "A", ToClub: "B", Type: models.DirectionArrival},
		{Player: "One", FromClub: "A", ToClub: "B", Fee: "second", Type: models.DirectionArrival},
		{Player: "One", FromClub: "B", ToClub: "A", Type: models.DirectionDeparture},
	}

	out, dropped := Dedupe(records)
	assert.Equal(t, 1, dropped)
	assert.Len(t, out, 3)
	assert.Equal(t, "first", out[0].Fee)
	assert.Equal(t, "Two", out[1].Player)
	assert.Equal(t, models.DirectionDeparture, out[2].Type)
}
