package main

import (
	"fmt"
	"net/http"
	"testing"

	commands "github.com/nightswipe/api/internal/modules/session/commands"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func confirmAction(t *testing.T, sessionID, userID, action string, expected int) commands.ConfirmActionResponse {
	response, err := sendRequest[struct{}, commands.ConfirmActionResponse](
		fixture.client,
		fmt.Sprintf("%s/api/v1/session/%s/%s-confirm", fixture.baseURL, sessionID, action),
		http.MethodPost,
		userID,
		struct{}{},
		expectStatus(t, expected),
	)
	require.NoError(t, err)
	return response
}

func Test_LoadMoreConfirm_Regenerates_Deck_For_Solo_Host(t *testing.T) {
	// Arrange
	hostID := uuid.NewString()
	created := createSession(t, hostID)
	fixture.venues.serve(makeVenues(25))
	firstDeck := generateDeck(t, created.SessionID, hostID, http.StatusOK)

	submitSwipe(t, created.SessionID, hostID, firstDeck.Deck[0].PlaceID, "right", http.StatusOK)

	// Act
	response := confirmAction(t, created.SessionID, hostID, "load-more", http.StatusOK)

	// Assert
	require.True(t, response.AllConfirmed)
	require.Equal(t, []string{hostID}, response.ConfirmedUsers)
	require.Equal(t, 1, response.TotalUsers)
	require.True(t, response.NewDeckGenerated)

	// The new epoch has a fresh deck and zeroed progress.
	secondDeck := getDeck(t, created.SessionID, hostID, http.StatusOK)
	require.NotEqual(t, firstDeck.DeckSeed, secondDeck.DeckSeed)

	view := getStatus(t, created.SessionID, hostID)
	require.Equal(t, 0, memberStatus(t, view, hostID).SwipesCount)
	require.False(t, memberStatus(t, view, hostID).Finished)
}

func Test_LoadMoreConfirm_Waits_For_Both_Members(t *testing.T) {
	// Arrange
	hostID := uuid.NewString()
	guestID := uuid.NewString()
	created := createSession(t, hostID)
	joinSession(t, created.SessionID, guestID, created.JoinCode, http.StatusOK)
	fixture.venues.serve(makeVenues(25))
	firstDeck := generateDeck(t, created.SessionID, hostID, http.StatusOK)

	// Act
	first := confirmAction(t, created.SessionID, hostID, "load-more", http.StatusOK)

	// Assert
	require.False(t, first.AllConfirmed)
	require.Equal(t, []string{hostID}, first.ConfirmedUsers)
	require.Equal(t, 2, first.TotalUsers)
	require.False(t, first.NewDeckGenerated)

	// A repeat confirmation from the same member changes nothing.
	repeat := confirmAction(t, created.SessionID, hostID, "load-more", http.StatusOK)
	require.False(t, repeat.AllConfirmed)
	require.Equal(t, []string{hostID}, repeat.ConfirmedUsers)

	second := confirmAction(t, created.SessionID, guestID, "load-more", http.StatusOK)
	require.True(t, second.AllConfirmed)
	require.ElementsMatch(t, []string{hostID, guestID}, second.ConfirmedUsers)
	require.True(t, second.NewDeckGenerated)

	newDeck := getDeck(t, created.SessionID, guestID, http.StatusOK)
	require.NotEqual(t, firstDeck.DeckSeed, newDeck.DeckSeed)
}

func Test_RestartConfirm_Clears_Progress_For_New_Round(t *testing.T) {
	// Arrange
	hostID := uuid.NewString()
	guestID := uuid.NewString()
	created := createSession(t, hostID)
	joinSession(t, created.SessionID, guestID, created.JoinCode, http.StatusOK)
	fixture.venues.serve(makeVenues(5))
	deck := generateDeck(t, created.SessionID, hostID, http.StatusOK)

	placeIDs := make([]string, 0, len(deck.Deck))
	for _, place := range deck.Deck {
		placeIDs = append(placeIDs, place.PlaceID)
	}

	swipeWholeDeck(t, created.SessionID, hostID, placeIDs, func(int) string { return "right" })
	swipeWholeDeck(t, created.SessionID, guestID, placeIDs, func(int) string { return "right" })

	view := getStatus(t, created.SessionID, hostID)
	require.Equal(t, "completed", view.Status)

	// Act
	confirmAction(t, created.SessionID, hostID, "restart", http.StatusOK)
	response := confirmAction(t, created.SessionID, guestID, "restart", http.StatusOK)

	// Assert
	require.True(t, response.AllConfirmed)
	require.True(t, response.NewDeckGenerated)

	view = getStatus(t, created.SessionID, hostID)
	require.Equal(t, "active", view.Status)
	require.Equal(t, 0, memberStatus(t, view, hostID).SwipesCount)
	require.Equal(t, 0, memberStatus(t, view, guestID).SwipesCount)
}

func Test_LoadMore_And_Restart_Confirmations_Are_Tracked_Separately(t *testing.T) {
	// Arrange
	hostID := uuid.NewString()
	guestID := uuid.NewString()
	created := createSession(t, hostID)
	joinSession(t, created.SessionID, guestID, created.JoinCode, http.StatusOK)
	fixture.venues.serve(makeVenues(25))
	generateDeck(t, created.SessionID, hostID, http.StatusOK)

	// Act
	loadMore := confirmAction(t, created.SessionID, hostID, "load-more", http.StatusOK)
	restart := confirmAction(t, created.SessionID, guestID, "restart", http.StatusOK)

	// Assert
	require.False(t, loadMore.AllConfirmed)
	require.False(t, restart.AllConfirmed)
	require.Equal(t, []string{hostID}, loadMore.ConfirmedUsers)
	require.Equal(t, []string{guestID}, restart.ConfirmedUsers)
}

func Test_Confirm_Returns_403_For_Non_Member(t *testing.T) {
	// Arrange
	created := createSession(t, uuid.NewString())

	// Act + Assert
	confirmAction(t, created.SessionID, uuid.NewString(), "load-more", http.StatusForbidden)
}

func Test_Confirm_Returns_409_For_Cancelled_Session(t *testing.T) {
	// Arrange
	hostID := uuid.NewString()
	created := createSession(t, hostID)

	_, err := sendRequest[struct{}, map[string]string](
		fixture.client,
		fmt.Sprintf("%s/api/v1/session/%s/cancel", fixture.baseURL, created.SessionID),
		http.MethodPost,
		hostID,
		struct{}{},
		expectStatus(t, http.StatusOK),
	)
	require.NoError(t, err)

	// Act + Assert
	confirmAction(t, created.SessionID, hostID, "restart", http.StatusConflict)
}
