package domain

type Team struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	Name         string `json:"name" gorm:"uniqueIndex;not null"`
	Abbreviation string `json:"abbreviation" gorm:"type:varchar(10);uniqueIndex;not null"`
}

func (Team) TableName() string { return "teams" }

// UnassignedNumber marks a player for whom no free jersey number was found.
const UnassignedNumber = 0

// Jersey numbers handed out automatically fall in this closed range.
const (
	MinJerseyNumber = 1
	MaxJerseyNumber = 98
)

type Player struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	Name   string `json:"name" gorm:"uniqueIndex;not null"`
	Number int    `json:"number"`
}

func (Player) TableName() string { return "players" }
