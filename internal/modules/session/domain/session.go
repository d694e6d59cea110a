package domain

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

const (
	RoleHost  = "host"
	RoleGuest = "guest"
)

const (
	DirectionLeft  = "left"
	DirectionRight = "right"
)

// Confirmation kinds for the multi-party agreement protocol.
const (
	KindLoadMore = "load_more"
	KindRestart  = "restart"
)

const MaxMembers = 2

// Session owns the lifecycle of one venue-picking round between a host
// and an optional guest. deck_seed is set at most once per epoch; a new
// epoch starts only through the confirmation protocol.
type Session struct {
	ID            string    `db:"id" json:"session_id"`
	HostID        string    `db:"host_id" json:"host_id"`
	JoinCode      string    `db:"join_code" json:"join_code"`
	HostLat       float64   `db:"host_lat" json:"-"`
	HostLng       float64   `db:"host_lng" json:"-"`
	DeckSeed      *string   `db:"deck_seed" json:"deck_seed,omitempty"`
	Epoch         int       `db:"epoch" json:"-"`
	Status        string    `db:"status" json:"status"`
	LoadMoreCount int       `db:"load_more_count" json:"load_more_count"`
	RestartCount  int       `db:"restart_count" json:"restart_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Joinable reports whether a guest may still be admitted.
func (s Session) Joinable() bool {
	return s.Status == StatusPending || s.Status == StatusActive
}

func (s Session) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusCancelled || s.Status == StatusExpired
}

type Member struct {
	SessionID string    `db:"session_id" json:"session_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Role      string    `db:"role" json:"role"`
	JoinedAt  time.Time `db:"joined_at" json:"joined_at"`
}

// Place is one deck card. CardOrder is a dense 0-based index, unique
// within a (session, epoch) deck.
type Place struct {
	SessionID   string   `db:"session_id" json:"-"`
	Epoch       int      `db:"epoch" json:"-"`
	PlaceID     string   `db:"place_id" json:"place_id"`
	Name        string   `db:"name" json:"name"`
	PhotoURL    string   `db:"photo_url" json:"photo_url"`
	Category    string   `db:"category" json:"category"`
	Rating      *float64 `db:"rating" json:"rating"`
	ReviewCount int      `db:"review_count" json:"review_count"`
	Address     string   `db:"address" json:"address"`
	DistanceKm  float64  `db:"distance_km" json:"distance_km"`
	CardOrder   int      `db:"card_order" json:"order"`
}

// Swipe records one decision. Immutable; the unique key
// (session, epoch, user, place) makes resubmission idempotent.
type Swipe struct {
	ID        string    `db:"id" json:"swipe_id"`
	SessionID string    `db:"session_id" json:"session_id"`
	Epoch     int       `db:"epoch" json:"-"`
	UserID    string    `db:"user_id" json:"user_id"`
	PlaceID   string    `db:"place_id" json:"place_id"`
	Direction string    `db:"direction" json:"direction"`
	SwipedAt  time.Time `db:"swiped_at" json:"swiped_at"`
}

type Confirmation struct {
	SessionID   string    `db:"session_id" json:"session_id"`
	Epoch       int       `db:"epoch" json:"-"`
	Kind        string    `db:"kind" json:"kind"`
	UserID      string    `db:"user_id" json:"user_id"`
	ConfirmedAt time.Time `db:"confirmed_at" json:"confirmed_at"`
}

// NewJoinCode returns an 8-character uppercase hex code.
func NewJoinCode() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}

	return strings.ToUpper(hex.EncodeToString(buf))
}

// NewDeckSeed builds the deck seed from the host coordinates and a
// generation timestamp. Persisted before shuffling so the same seed
// reproduces the same order later.
func NewDeckSeed(hostLat, hostLng float64, at time.Time) string {
	return strconv.FormatFloat(hostLat, 'f', -1, 64) +
		"_" + strconv.FormatFloat(hostLng, 'f', -1, 64) +
		"_" + strconv.FormatInt(at.UnixMilli(), 10)
}

func ValidDirection(direction string) bool {
	return direction == DirectionLeft || direction == DirectionRight
}

func ValidConfirmationKind(kind string) bool {
	return kind == KindLoadMore || kind == KindRestart
}

func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
