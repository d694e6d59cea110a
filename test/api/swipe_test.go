package main

import (
	"fmt"
	"net/http"
	"testing"

	commands "github.com/nightswipe/api/internal/modules/session/commands"
	"github.com/nightswipe/api/internal/modules/session/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func submitSwipe(t *testing.T, sessionID, userID, placeID, direction string, expected int) domain.Swipe {
	response, err := sendRequest[commands.SubmitSwipeCommand, domain.Swipe](
		fixture.client,
		fmt.Sprintf("%s/api/v1/session/%s/swipe", fixture.baseURL, sessionID),
		http.MethodPost,
		userID,
		commands.SubmitSwipeCommand{PlaceID: placeID, Direction: direction},
		expectStatus(t, expected),
	)
	require.NoError(t, err)
	return response
}

func Test_SubmitSwipe_Records_Swipe(t *testing.T) {
	// Arrange
	hostID := uuid.NewString()
	created := createSession(t, hostID)
	fixture.venues.serve(makeVenues(25))
	deck := generateDeck(t, created.SessionID, hostID, http.StatusOK)

	// Act
	swipe := submitSwipe(t, created.SessionID, hostID, deck.Deck[0].PlaceID, "right", http.StatusOK)

	// Assert
	require.NotEmpty(t, swipe.ID)
	require.Equal(t, created.SessionID, swipe.SessionID)
	require.Equal(t, hostID, swipe.UserID)
	require.Equal(t, deck.Deck[0].PlaceID, swipe.PlaceID)
	require.Equal(t, "right", swipe.Direction)
}

func Test_SubmitSwipe_Returns_409_With_Original_Swipe_On_Duplicate(t *testing.T) {
	// Arrange
	hostID := uuid.NewString()
	created := createSession(t, hostID)
	fixture.venues.serve(makeVenues(25))
	deck := generateDeck(t, created.SessionID, hostID, http.StatusOK)

	original := submitSwipe(t, created.SessionID, hostID, deck.Deck[0].PlaceID, "right", http.StatusOK)

	// Act
	type duplicateResponse struct {
		Error   string       `json:"error"`
		Message string       `json:"message"`
		Swipe   domain.Swipe `json:"swipe"`
	}

	response, err := sendRequest[commands.SubmitSwipeCommand, duplicateResponse](
		fixture.client,
		fmt.Sprintf("%s/api/v1/session/%s/swipe", fixture.baseURL, created.SessionID),
		http.MethodPost,
		hostID,
		commands.SubmitSwipeCommand{PlaceID: deck.Deck[0].PlaceID, Direction: "left"},
		expectStatus(t, http.StatusConflict),
	)

	// Assert
	require.NoError(t, err)
	require.Equal(t, "duplicate_swipe", response.Error)
	require.Equal(t, original.ID, response.Swipe.ID)
	require.Equal(t, "right", response.Swipe.Direction)
}

func Test_SubmitSwipe_Returns_400_For_Place_Not_In_Deck(t *testing.T) {
	// Arrange
	hostID := uuid.NewString()
	created := createSession(t, hostID)
	fixture.venues.serve(makeVenues(25))
	generateDeck(t, created.SessionID, hostID, http.StatusOK)

	// Act + Assert
	submitSwipe(t, created.SessionID, hostID, "not-in-the-deck", "right", http.StatusBadRequest)
}

func Test_SubmitSwipe_Returns_400_For_Invalid_Direction(t *testing.T) {
	// Arrange
	hostID := uuid.NewString()
	created := createSession(t, hostID)
	fixture.venues.serve(makeVenues(25))
	deck := generateDeck(t, created.SessionID, hostID, http.StatusOK)

	// Act + Assert
	submitSwipe(t, created.SessionID, hostID, deck.Deck[0].PlaceID, "up", http.StatusBadRequest)
}

func Test_SubmitSwipe_Returns_403_For_Non_Member(t *testing.T) {
	// Arrange
	hostID := uuid.NewString()
	created := createSession(t, hostID)
	fixture.venues.serve(makeVenues(25))
	deck := generateDeck(t, created.SessionID, hostID, http.StatusOK)

	// Act + Assert
	submitSwipe(t, created.SessionID, uuid.NewString(), deck.Deck[0].PlaceID, "right", http.StatusForbidden)
}
