package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dom/puckquery/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	displayName string
	password    string
	role        domain.Role
}

// NewUserBuilder creates an analyst with a random display name
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		displayName: fmt.Sprintf("testuser_%s", uuid.New().String()[:8]),
		password:    "testpassword123",
		role:        domain.RoleAnalyst,
	}
}

// WithDisplayName sets the display name
func (b *UserBuilder) WithDisplayName(name string) *UserBuilder {
	b.displayName = name
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// WithRole sets the account role
func (b *UserBuilder) WithRole(role domain.Role) *UserBuilder {
	b.role = role
	return b
}

// Build creates the user in the database and returns the user with the raw password
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) (*domain.User, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		DisplayName:  b.displayName,
		PasswordHash: string(hashedPassword),
		Role:         b.role,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// AuthResponse matches the API auth response
type AuthResponse struct {
	User struct {
		ID          string      `json:"id"`
		DisplayName string      `json:"displayName"`
		Role        domain.Role `json:"role"`
	} `json:"user"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// BuildAndAuthenticate stores the user and logs in through the API,
// returning the user and an access token
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (*domain.User, string) {
	t.Helper()

	user, password := b.Build(t, ts.DB.DB)
	auth := Login(t, ts, user.DisplayName, password)
	return user, auth.AccessToken
}

// Login posts credentials to the login endpoint and fails the test unless
// it succeeds
func Login(t *testing.T, ts *TestServer, displayName, password string) AuthResponse {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"displayName": displayName,
		"password":    password,
	})

	resp, err := http.Post(ts.APIURL("/auth/login"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to log in: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected login status code: %d", resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return authResp
}

// EventBuilder creates play-by-play rows with a builder pattern
type EventBuilder struct {
	event domain.RawEvent
}

// NewEventBuilder starts a faceoff in the first period of the sample game
func NewEventBuilder() *EventBuilder {
	return &EventBuilder{event: domain.RawEvent{
		GameDate:        SampleGame.GameDate,
		HomeTeam:        SampleGame.HomeTeam,
		AwayTeam:        SampleGame.AwayTeam,
		Period:          1,
		Clock:           "20:00",
		HomeTeamSkaters: 5,
		AwayTeamSkaters: 5,
		Team:            SampleGame.HomeTeam,
		Player:          "Jenni Hiirikoski",
		Event:           "Faceoff Win",
	}}
}

// InGame moves the event to another game
func (b *EventBuilder) InGame(game domain.GameIdentity) *EventBuilder {
	b.event.GameDate = game.GameDate
	b.event.HomeTeam = game.HomeTeam
	b.event.AwayTeam = game.AwayTeam
	b.event.Team = game.HomeTeam
	return b
}

// By sets the acting team and player
func (b *EventBuilder) By(team, player string) *EventBuilder {
	b.event.Team = team
	b.event.Player = player
	return b
}

// OfType sets the event type
func (b *EventBuilder) OfType(kind string) *EventBuilder {
	b.event.Event = kind
	return b
}

// At sets the rink coordinates
func (b *EventBuilder) At(x, y int) *EventBuilder {
	b.event.XCoordinate = &x
	b.event.YCoordinate = &y
	return b
}

// WithTarget sets the secondary player
func (b *EventBuilder) WithTarget(player string) *EventBuilder {
	b.event.Player2 = &player
	return b
}

// Clock sets the period and game clock
func (b *EventBuilder) Clock(period int, clock string) *EventBuilder {
	b.event.Period = period
	b.event.Clock = clock
	return b
}

// Build returns the row
func (b *EventBuilder) Build() domain.RawEvent {
	return b.event
}

// SampleGame is the game most fixtures are played in.
var SampleGame = domain.GameIdentity{
	GameDate: "2022-02-03",
	HomeTeam: "Olympic (Women) - Finland",
	AwayTeam: "Olympic (Women) - United States",
}

// OtherGame is a second game sharing a team with SampleGame.
var OtherGame = domain.GameIdentity{
	GameDate: "2022-02-04",
	HomeTeam: "Olympic (Women) - Canada",
	AwayTeam: "Olympic (Women) - Finland",
}

// SampleRows returns a small two-game event log with shots and goals.
func SampleRows() []domain.RawEvent {
	usa := SampleGame.AwayTeam
	fin := SampleGame.HomeTeam
	can := OtherGame.HomeTeam

	return []domain.RawEvent{
		NewEventBuilder().At(100, 42).WithTarget("Hilary Knight").Build(),
		NewEventBuilder().Clock(1, "18:02").By(usa, "Hilary Knight").OfType("Shot").At(160, 20).Build(),
		NewEventBuilder().Clock(1, "17:40").By(usa, "Hilary Knight").OfType("Goal").At(170, 40).Build(),
		NewEventBuilder().Clock(2, "05:11").By(fin, "Michelle Karvinen").OfType("Shot").At(30, 55).Build(),
		NewEventBuilder().InGame(OtherGame).Clock(2, "10:00").By(can, "Marie-Philip Poulin").OfType("shot").At(150, 30).Build(),
		NewEventBuilder().InGame(OtherGame).Clock(3, "01:00").By(fin, "Jenni Hiirikoski").OfType("Penalty Taken").Build(),
	}
}

// CreateAuthenticatedRequest creates an HTTP request with auth token
func CreateAuthenticatedRequest(t *testing.T, method, url string, body interface{}, token string) *http.Request {
	t.Helper()

	var bodyReader *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	} else {
		bodyReader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}
