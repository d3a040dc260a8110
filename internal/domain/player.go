package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Player is the persistent identity behind a summoner name. Created on
// first appearance, mutated only through the match store, never deleted.
type Player struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SummonerName  string    `json:"summonerName" gorm:"uniqueIndex;not null"`
	GameName      string    `json:"gameName"`
	TagLine       string    `json:"tagLine"`
	PUUID         string    `json:"puuid" gorm:"column:puuid"`
	SummonerID    string    `json:"summonerId"`
	ProfileIconID int       `json:"profileIconId"`
	CustomLP      int       `json:"customLp" gorm:"not null;default:1000"`
	CustomMMR     int       `json:"customMmr" gorm:"not null;default:1000"`
	Wins          int       `json:"wins" gorm:"not null;default:0"`
	Losses        int       `json:"losses" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Player) TableName() string {
	return "players"
}

// CanonicalSummonerName builds the lookup key "gamename#tagline".
func CanonicalSummonerName(gameName, tagLine string) string {
	return NormalizeSummonerName(fmt.Sprintf("%s#%s", gameName, tagLine))
}

// NormalizeSummonerName lowercases and trims a summoner name so that
// "Faker#KR1" and "faker#kr1" address the same player.
func NormalizeSummonerName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SplitSummonerName returns the gameName and tagLine halves. The tag is
// empty when the name carries no separator.
func SplitSummonerName(name string) (string, string) {
	if i := strings.LastIndex(name, "#"); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}
