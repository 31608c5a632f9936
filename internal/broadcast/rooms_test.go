package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomKeys(t *testing.T) {
	assert.Equal(t, "session:abc", SessionRoom("abc"))
	assert.Equal(t, "station:r1:grill", StationRoom("r1", "grill"))
	assert.Equal(t, "restaurant:r1", RestaurantRoom("r1"))
}

func TestRoomKeysAreDisjoint(t *testing.T) {
	// a session id equal to a restaurant id must still land in a different room
	assert.NotEqual(t, SessionRoom("x"), RestaurantRoom("x"))
	assert.NotEqual(t, StationRoom("x", "y"), SessionRoom("x:y"))
}
